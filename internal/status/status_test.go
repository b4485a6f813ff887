package status

import (
	"testing"
	"time"
)

func TestInfer_GeneratingWhileFinishAbsentAndYoung(t *testing.T) {
	got := Infer(Input{LastMessageRole: "assistant", LastFinish: "", MessageAge: 5 * time.Second}, DefaultThresholds())
	if got != Generating {
		t.Errorf("got %q, want %q", got, Generating)
	}
}

// TestInfer_BusyNotStaleWhenDBLagsButCPUIsActive reproduces spec.md's
// worked scenario: the database write lags behind the model's actual
// work, so the message looks old with no finish reason, but the bound
// process is still burning CPU. That must read as busy, not stale.
func TestInfer_BusyNotStaleWhenDBLagsButCPUIsActive(t *testing.T) {
	got := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "",
		MessageAge:      180 * time.Second,
		CPUPercent:      22.0,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if got != Busy {
		t.Errorf("got %q, want %q (DB-lag case should not read as stale while CPU is active)", got, Busy)
	}
}

func TestInfer_StaleWhenFinishAbsentOldAndCPUIdle(t *testing.T) {
	got := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "",
		MessageAge:      200 * time.Second,
		CPUPercent:      0.1,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if got != Stale {
		t.Errorf("got %q, want %q", got, Stale)
	}
}

// TestInfer_ToolUseThenIdleAfterWaitWindow reproduces spec.md's
// tool-call-wait scenario: immediately after a tool-calls finish the
// session reads as "tool use"; once the wait window elapses with no
// CPU activity it settles to idle rather than staying stuck on
// "tool use" forever.
func TestInfer_ToolUseThenIdleAfterWaitWindow(t *testing.T) {
	fresh := Infer(Input{LastMessageRole: "assistant", LastFinish: "tool-calls", MessageAge: 5 * time.Second}, DefaultThresholds())
	if fresh != ToolUse {
		t.Errorf("got %q, want %q immediately after a tool-calls finish", fresh, ToolUse)
	}

	settled := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "tool-calls",
		MessageAge:      45 * time.Second,
		CPUPercent:      0.0,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if settled != Idle {
		t.Errorf("got %q, want %q once the tool-use wait window elapses with no CPU activity", settled, Idle)
	}
}

func TestInfer_ToolUseWindowStaysBusyWithActiveCPU(t *testing.T) {
	got := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "tool-calls",
		MessageAge:      45 * time.Second,
		CPUPercent:      12.0,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if got != Busy {
		t.Errorf("got %q, want %q", got, Busy)
	}
}

func TestInfer_StopFinishBusyVsIdle(t *testing.T) {
	busy := Infer(Input{LastMessageRole: "assistant", LastFinish: "stop", CPUPercent: 9.0, HasBoundProcess: true}, DefaultThresholds())
	if busy != Busy {
		t.Errorf("got %q, want %q", busy, Busy)
	}
	idle := Infer(Input{LastMessageRole: "assistant", LastFinish: "stop", CPUPercent: 0.0, HasBoundProcess: true}, DefaultThresholds())
	if idle != Idle {
		t.Errorf("got %q, want %q", idle, Idle)
	}
}

func TestInfer_LengthFinishAlwaysTruncated(t *testing.T) {
	cases := []Input{
		{LastMessageRole: "assistant", LastFinish: "length", CPUPercent: 50.0, HasBoundProcess: true},
		{LastMessageRole: "assistant", LastFinish: "length", MessageAge: time.Hour},
	}
	for _, in := range cases {
		if got := Infer(in, DefaultThresholds()); got != Truncated {
			t.Errorf("got %q, want %q for %+v", got, Truncated, in)
		}
	}
}

func TestInfer_OtherFinishAlwaysIdle(t *testing.T) {
	got := Infer(Input{LastMessageRole: "assistant", LastFinish: "error", CPUPercent: 50.0, HasBoundProcess: true}, DefaultThresholds())
	if got != Idle {
		t.Errorf("got %q, want %q", got, Idle)
	}
}

func TestInfer_UserCPUActiveIsThinking(t *testing.T) {
	got := Infer(Input{LastMessageRole: "user", CPUPercent: 8.0, HasBoundProcess: true, MessageAge: time.Hour}, DefaultThresholds())
	if got != Thinking {
		t.Errorf("got %q, want %q", got, Thinking)
	}
}

func TestInfer_UserRecentNoCPUIsThinking(t *testing.T) {
	got := Infer(Input{LastMessageRole: "user", MessageAge: 10 * time.Second}, DefaultThresholds())
	if got != Thinking {
		t.Errorf("got %q, want %q", got, Thinking)
	}
}

func TestInfer_UserOldNoCPUIsQueued(t *testing.T) {
	got := Infer(Input{LastMessageRole: "user", MessageAge: 90 * time.Second}, DefaultThresholds())
	if got != Queued {
		t.Errorf("got %q, want %q", got, Queued)
	}
}

func TestInfer_UnknownRoleIsUnknown(t *testing.T) {
	got := Infer(Input{LastMessageRole: ""}, DefaultThresholds())
	if got != Unknown {
		t.Errorf("got %q, want %q", got, Unknown)
	}
}

func TestInfer_Deterministic(t *testing.T) {
	in := Input{LastMessageRole: "assistant", LastFinish: "stop", CPUPercent: 1.0, HasBoundProcess: true}
	a, b := Infer(in, DefaultThresholds()), Infer(in, DefaultThresholds())
	if a != b {
		t.Errorf("Infer is not deterministic for identical input: %q vs %q", a, b)
	}
}

// TestInfer_CPUActiveThresholdIsStrictlyGreaterThan pins spec.md §4.6's
// boundary: cpu_percent must exceed the threshold, not merely reach it.
func TestInfer_CPUActiveThresholdIsStrictlyGreaterThan(t *testing.T) {
	atThreshold := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "stop",
		CPUPercent:      5.0,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if atThreshold != Idle {
		t.Errorf("got %q, want %q at exactly the threshold (5.0 must not count as active)", atThreshold, Idle)
	}

	justAbove := Infer(Input{
		LastMessageRole: "assistant",
		LastFinish:      "stop",
		CPUPercent:      5.01,
		HasBoundProcess: true,
	}, DefaultThresholds())
	if justAbove != Busy {
		t.Errorf("got %q, want %q just above the threshold", justAbove, Busy)
	}
}

func TestIsDim(t *testing.T) {
	dim := []Status{Idle, Queued, Stale, Unknown}
	for _, s := range dim {
		if !IsDim(s) {
			t.Errorf("expected %q to be dim", s)
		}
	}
	bright := []Status{Generating, ToolUse, Busy, Truncated, Thinking}
	for _, s := range bright {
		if IsDim(s) {
			t.Errorf("expected %q not to be dim", s)
		}
	}
}
