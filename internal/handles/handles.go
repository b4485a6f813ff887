// Package handles resolves OS-level file handle information (current
// working directory, open log file path) for a batch of PIDs with a
// single lsof invocation. Per-PID invocation is forbidden: each lsof
// call costs roughly 200ms, so batching is a hard latency requirement.
package handles

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const resolveTimeout = 5 * time.Second

// Handle is what the resolver learns about one PID's open file table.
type Handle struct {
	Cwd     string // "" if unknown
	LogPath string // "" if no matching log file handle was found
}

// Resolver issues one batched lsof call per Resolve.
type Resolver struct {
	execCommand func(ctx context.Context, pids []int) ([]byte, error)
}

// New returns a Resolver that shells out to the real lsof binary.
func New() *Resolver {
	return &Resolver{execCommand: runLsof}
}

func runLsof(ctx context.Context, pids []int) ([]byte, error) {
	strs := make([]string, len(pids))
	for i, pid := range pids {
		strs[i] = strconv.Itoa(pid)
	}
	cmd := exec.CommandContext(ctx, "lsof", "-p", strings.Join(strs, ","))
	var out bytes.Buffer
	cmd.Stdout = &out
	// lsof exits non-zero when some of the requested PIDs have no open
	// files or have already exited; that is not a failure of the batch.
	_ = cmd.Run()
	return out.Bytes(), nil
}

// Resolve issues a single batched lsof call across all candidate PIDs
// and returns a map from PID to Handle. Unknown PIDs are omitted from
// the result; callers should treat a missing entry as {Cwd: "", LogPath: ""}.
// A missing/timed-out lsof binary degrades to an empty map, never an error.
func (r *Resolver) Resolve(pids []int) map[int]Handle {
	if len(pids) == 0 {
		return map[int]Handle{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	out, err := r.execCommand(ctx, pids)
	if err != nil {
		log.Printf("[handles] lsof failed: %v", err)
		return map[int]Handle{}
	}
	return ParseLsof(string(out))
}

// ParseLsof parses lsof's default (non -F) multi-field output. Field
// index 1 (0-indexed) is the pid, field index 3 is the fd tag (cwd
// rows have fd == "cwd"), and the path runs from field index 8 to the
// end of the line. Pure and
// exported so it can be tested without invoking lsof.
func ParseLsof(output string) map[int]Handle {
	result := make(map[int]Handle)
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 {
			// header: COMMAND PID USER FD TYPE DEVICE SIZE/OFF NODE NAME
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		fd := fields[3]
		// NAME is everything from field index 8 onward, rejoined: it
		// may itself contain spaces (e.g. "/path/to/file (deleted)"
		// for an unlinked-but-open log file, which the kernel keeps
		// alive and lsof still reports by its original path).
		path := strings.TrimSuffix(strings.Join(fields[8:], " "), " (deleted)")

		h := result[pid]
		if fd == "cwd" {
			h.Cwd = path
		}
		if strings.Contains(path, ".log") && strings.Contains(path, "opencode/log/") {
			h.LogPath = path
		}
		result[pid] = h
	}
	return result
}
