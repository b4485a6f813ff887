// Package status infers a human-facing activity label for a session
// from the shape of its last message and the CPU behavior of the
// process bound to it. It never touches the database or the process
// table directly — it is a pure function of the facts the assembler
// has already gathered.
package status

import "time"

// Status is one of the closed set of inferred activity labels.
type Status string

const (
	Generating Status = "generating"
	ToolUse    Status = "tool use"
	Busy       Status = "busy"
	Stale      Status = "stale"
	Idle       Status = "idle"
	Truncated  Status = "truncated"
	Thinking   Status = "thinking"
	Queued     Status = "queued"
	Unknown    Status = "unknown"
)

// Thresholds are the tunable cutoffs the decision table in Infer
// applies. Callers that don't need non-default behavior can use
// DefaultThresholds(); the dashboard's config package lets an operator
// override them.
type Thresholds struct {
	// CPUActive is the CPU% a process must exceed (strictly) to be
	// considered to be doing real work rather than idling in a poll loop.
	CPUActive float64
	// StaleAfter is how long an assistant message can sit with no
	// finish reason before it is considered stuck rather than still
	// generating.
	StaleAfter time.Duration
	// ToolWaitWindow is how long a tool-calls finish is shown as
	// "tool use" before it reverts to busy/idle.
	ToolWaitWindow time.Duration
	// UserThinkWindow is how long a user message is shown as
	// "thinking" once CPU activity alone can no longer justify it.
	UserThinkWindow time.Duration
}

// DefaultThresholds returns the thresholds from spec.md §4.6.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUActive:       5.0,
		StaleAfter:      120 * time.Second,
		ToolWaitWindow:  30 * time.Second,
		UserThinkWindow: 60 * time.Second,
	}
}

// Input is everything the inferrer needs about one session's most
// recent message plus the liveness of its bound process.
type Input struct {
	LastMessageRole string // "user", "assistant", or ""
	LastFinish      string // "", "tool-calls", "stop", "length", or other
	MessageAge      time.Duration
	CPUPercent      float64
	HasBoundProcess bool
}

// Infer applies the decision table from spec.md §4.6 using t as the
// cutoffs for staleness, tool-wait, and think windows.
func Infer(in Input, t Thresholds) Status {
	cpuActive := in.HasBoundProcess && in.CPUPercent > t.CPUActive

	switch in.LastMessageRole {
	case "assistant":
		return inferAssistant(in, t, cpuActive)
	case "user":
		return inferUser(in, t, cpuActive)
	default:
		return Unknown
	}
}

func inferAssistant(in Input, t Thresholds, cpuActive bool) Status {
	switch in.LastFinish {
	case "":
		// No finish reason yet: the assistant is still generating,
		// unless it has sat silent long enough to call stuck.
		if in.MessageAge < t.StaleAfter {
			return Generating
		}
		if cpuActive {
			return Busy
		}
		return Stale
	case "tool-calls":
		if in.MessageAge < t.ToolWaitWindow {
			return ToolUse
		}
		if cpuActive {
			return Busy
		}
		return Idle
	case "stop":
		if cpuActive {
			return Busy
		}
		return Idle
	case "length":
		return Truncated
	default:
		return Idle
	}
}

func inferUser(in Input, t Thresholds, cpuActive bool) Status {
	if cpuActive {
		return Thinking
	}
	if in.MessageAge < t.UserThinkWindow {
		return Thinking
	}
	return Queued
}

// dimStatuses are the labels the view layer renders in a muted style:
// the session exists but nothing is actively happening.
var dimStatuses = map[Status]bool{
	Idle:    true,
	Queued:  true,
	Stale:   true,
	Unknown: true,
}

// IsDim reports whether s should be rendered in the view's dimmed
// style rather than its normal or attention-grabbing style.
func IsDim(s Status) bool {
	return dimStatuses[s]
}
