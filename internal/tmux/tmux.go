// Package tmux resolves a TTY device name to its containing
// terminal-multiplexer pane and captures that pane's visible screen
// lines, for the Detail Data Provider's live-transcript view. This is
// out-of-core-scope glue per the dashboard's design: the core only
// requires a function from TTY name to lines-or-absence.
package tmux

import (
	"os/exec"
	"strings"
)

// Pane is one tmux pane's identity as reported by list-panes.
type Pane struct {
	TTY    string // e.g. "/dev/pts/3"
	Target string // "session:window.pane", ready for capture-pane -t
}

// Resolver maps TTY basenames to tmux pane targets. A nil *Resolver is
// valid and always reports absence, so callers don't need to special
// case an unavailable tmux.
type Resolver struct {
	targetByTTY map[string]string

	// capture is overridable in tests.
	capture func(target string) ([]byte, error)
}

// NewResolver queries tmux for all panes across all sessions. Returns
// nil when tmux is not installed or not running — not an error, since
// pane capture is an optional enrichment, never a correctness
// requirement.
func NewResolver() *Resolver {
	panes, err := listPanes()
	if err != nil || len(panes) == 0 {
		return nil
	}
	targetByTTY := make(map[string]string, len(panes))
	for _, p := range panes {
		targetByTTY[p.TTY] = p.Target
	}
	return &Resolver{targetByTTY: targetByTTY, capture: runCapture}
}

// Lines returns the pane's currently visible screen contents for the
// session running on ttyName, or (nil, false) if ttyName isn't inside
// any known tmux pane, tmux is unavailable, or the capture fails.
func (r *Resolver) Lines(ttyName string) ([]string, bool) {
	if r == nil || ttyName == "" {
		return nil, false
	}
	target, ok := r.targetByTTY[normalizeTTY(ttyName)]
	if !ok {
		return nil, false
	}
	out, err := r.capture(target)
	if err != nil {
		return nil, false
	}
	return ParseCapture(string(out)), true
}

// normalizeTTY accepts either a bare basename ("pts/3") or a full
// device path ("/dev/pts/3") and returns the full device path tmux
// reports via #{pane_tty}.
func normalizeTTY(tty string) string {
	if strings.HasPrefix(tty, "/dev/") {
		return tty
	}
	return "/dev/" + tty
}

// listPanes runs tmux list-panes and parses the output.
func listPanes() ([]Pane, error) {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return nil, err
	}
	out, err := exec.Command(path, "list-panes", "-a", "-F", "#{pane_tty}\t#{session_name}\t#{window_index}\t#{pane_index}").Output()
	if err != nil {
		return nil, err
	}
	return ParsePanes(string(out)), nil
}

// ParsePanes parses the tab-separated output of
// `tmux list-panes -a -F '#{pane_tty}\t#{session_name}\t#{window_index}\t#{pane_index}'`.
// Exported and pure so it can be tested without a real tmux binary.
func ParsePanes(output string) []Pane {
	var panes []Pane
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		panes = append(panes, Pane{
			TTY:    fields[0],
			Target: fields[1] + ":" + fields[2] + "." + fields[3],
		})
	}
	return panes
}

func runCapture(target string) ([]byte, error) {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return nil, err
	}
	return exec.Command(path, "capture-pane", "-p", "-t", target).Output()
}

// ParseCapture splits tmux capture-pane output into display lines,
// trimming the single trailing newline tmux always appends.
func ParseCapture(output string) []string {
	output = strings.TrimSuffix(output, "\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
