// Package logts decodes the UTC timestamp encoded in an opencode log
// filename into epoch milliseconds. Local-time parsing is forbidden: it
// silently introduces a multi-hour offset that breaks tier-2 correlation
// in the correlator.
package logts

import (
	"path/filepath"
	"regexp"
	"time"
)

// nameRe matches the basename pattern YYYY-MM-DDTHHMMSS.log.
var nameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{6})\.log$`)

const layout = "2006-01-02T150405"

// Decode parses the UTC-encoded timestamp from a log file path's
// basename and returns epoch milliseconds. Returns 0 if path is empty,
// the basename doesn't match the expected pattern, or the embedded
// timestamp fails to parse.
func Decode(path string) int64 {
	if path == "" {
		return 0
	}
	base := filepath.Base(path)
	m := nameRe.FindStringSubmatch(base)
	if m == nil {
		return 0
	}
	t, err := time.ParseInLocation(layout, m[1], time.UTC)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
