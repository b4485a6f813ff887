package handles

import (
	"context"
	"os/exec"
	"testing"
)

const sampleLsof = `COMMAND   PID   USER   FD   TYPE DEVICE SIZE/OFF   NODE NAME
opencode 4242   user  cwd    DIR    1,2     4096 123456 /home/u/p
opencode 4242   user    4u   REG    1,2    20480 234567 /home/u/.local/share/opencode/log/2026-02-20T145658.log (deleted)
opencode 4242   user    5u   REG    1,2     2048 345678 /home/u/p/other.log
`

func TestParseLsof_CwdAndLogPath(t *testing.T) {
	result := ParseLsof(sampleLsof)
	h, ok := result[4242]
	if !ok {
		t.Fatalf("expected entry for pid 4242")
	}
	if h.Cwd != "/home/u/p" {
		t.Errorf("Cwd = %q, want /home/u/p", h.Cwd)
	}
	const want = "/home/u/.local/share/opencode/log/2026-02-20T145658.log"
	if h.LogPath != want {
		t.Errorf("LogPath = %q, want %q (unlinked-but-open files must keep their original path)", h.LogPath, want)
	}
}

func TestParseLsof_UnknownPIDOmitted(t *testing.T) {
	result := ParseLsof(sampleLsof)
	if _, ok := result[9999]; ok {
		t.Errorf("expected no entry for unknown pid")
	}
}

func TestParseLsof_MalformedEmpty(t *testing.T) {
	result := ParseLsof("")
	if len(result) != 0 {
		t.Errorf("expected empty map for empty input")
	}
}

func TestResolve_MissingBinaryReturnsEmpty(t *testing.T) {
	r := &Resolver{execCommand: func(_ context.Context, _ []int) ([]byte, error) {
		return nil, exec.ErrNotFound
	}}
	result := r.Resolve([]int{1, 2, 3})
	if len(result) != 0 {
		t.Errorf("expected empty map on lsof failure, got %+v", result)
	}
}

func TestResolve_EmptyPIDsShortCircuits(t *testing.T) {
	r := New()
	result := r.Resolve(nil)
	if len(result) != 0 {
		t.Errorf("expected empty map for no pids")
	}
}
