// Package view applies user-controlled filter and sort policy to a
// Snapshot to produce the list of rows the TUI actually renders. It is
// a pure function of (Snapshot, Policy): no I/O, no mutable state.
package view

import (
	"sort"
	"strings"

	"github.com/mrf/otop/internal/snapshot"
	"github.com/mrf/otop/internal/status"
)

// SortKey is one of the named fields the user can sort by.
type SortKey string

const (
	SortStatus        SortKey = "status"
	SortTitle         SortKey = "title"
	SortLastOutput    SortKey = "last_output"
	SortMessageCount  SortKey = "message_count"
	SortSessionID     SortKey = "session_id"
	SortPID           SortKey = "pid"
	SortUptime        SortKey = "uptime"
	SortRoundDuration SortKey = "round_duration"
	SortCPU           SortKey = "cpu"
	SortMem           SortKey = "mem"
	SortContextTokens SortKey = "context_tokens"
	SortModel         SortKey = "model"
	SortTTY           SortKey = "tty"
)

// sortKeys is the closed set SortKeyFromString recognizes, matching
// the const block above.
var sortKeys = map[string]SortKey{
	string(SortStatus):        SortStatus,
	string(SortTitle):         SortTitle,
	string(SortLastOutput):    SortLastOutput,
	string(SortMessageCount):  SortMessageCount,
	string(SortSessionID):     SortSessionID,
	string(SortPID):           SortPID,
	string(SortUptime):        SortUptime,
	string(SortRoundDuration): SortRoundDuration,
	string(SortCPU):           SortCPU,
	string(SortMem):           SortMem,
	string(SortContextTokens): SortContextTokens,
	string(SortModel):         SortModel,
	string(SortTTY):           SortTTY,
}

// SortKeyFromString resolves a config-file sort key name, falling back
// to SortStatus for anything unrecognized rather than rejecting the
// config outright.
func SortKeyFromString(s string) SortKey {
	if key, ok := sortKeys[s]; ok {
		return key
	}
	return SortStatus
}

// Policy is the user-owned filter/sort/visibility configuration,
// threaded through from the input-handling step. It has no hidden
// state of its own.
type Policy struct {
	Filter             string
	SortKey            SortKey
	Descending         bool
	ShowToolProcesses  bool
	ShowNoSession      bool
	ShowNonInteractive bool
}

// Filter applies Policy.Filter and the visibility policy from spec.md
// §4.8, then sorts the survivors, returning a new slice: the input
// Snapshot is never mutated.
func Filter(snap *snapshot.Snapshot, p Policy) []snapshot.Row {
	if snap == nil {
		return nil
	}

	visible := make([]snapshot.Row, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		if !p.ShowToolProcesses && row.Process.IsToolProcess {
			continue
		}
		if !p.ShowNoSession && !row.Bound {
			continue
		}
		if row.Bound && !row.Session.Interactive && !p.ShowNonInteractive {
			continue
		}
		if !matchesFilter(row, p.Filter) {
			continue
		}
		visible = append(visible, row)
	}

	Sort(visible, p.SortKey, p.Descending)
	return visible
}

func matchesFilter(row snapshot.Row, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	haystacks := []string{
		row.Session.Title,
		row.Session.Model,
		row.Session.SessionID,
		row.Process.Cwd,
		row.Process.TTYName,
		string(row.Status),
	}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// Sort orders rows in place by the composite key
// (has_no_session, primary, title_lowercase): unbound processes always
// sort to the end regardless of direction, and title is always the
// tie-breaking secondary key so rows don't bounce around as a volatile
// primary field (notably CPU%) fluctuates tick to tick.
func Sort(rows []snapshot.Row, key SortKey, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]

		if a.Bound != b.Bound {
			return a.Bound // bound rows sort before unbound, always
		}

		cmp := comparePrimary(a, b, key)
		if cmp != 0 {
			if descending {
				return cmp > 0
			}
			return cmp < 0
		}

		return strings.ToLower(a.Session.Title) < strings.ToLower(b.Session.Title)
	})
}

// comparePrimary returns <0, 0, >0 comparing a and b on key, ascending.
func comparePrimary(a, b snapshot.Row, key SortKey) int {
	switch key {
	case SortStatus:
		return cmpString(string(a.Status), string(b.Status))
	case SortTitle:
		return cmpString(strings.ToLower(a.Session.Title), strings.ToLower(b.Session.Title))
	case SortLastOutput:
		return cmpString(a.Session.LastOutputLine, b.Session.LastOutputLine)
	case SortMessageCount:
		return cmpInt(a.Session.MessageCount, b.Session.MessageCount)
	case SortSessionID:
		return cmpString(a.Session.SessionID, b.Session.SessionID)
	case SortPID:
		return cmpInt(a.Process.PID, b.Process.PID)
	case SortUptime:
		// A later start time means a shorter uptime.
		return cmpInt64(b.Process.StartTimeMS, a.Process.StartTimeMS)
	case SortRoundDuration:
		// A later round start means a shorter round so far.
		return cmpInt64(b.Session.RoundStartTimeMS, a.Session.RoundStartTimeMS)
	case SortCPU:
		return cmpFloat(a.Process.CPUPercent, b.Process.CPUPercent)
	case SortMem:
		return cmpUint64(a.Process.RSSBytes, b.Process.RSSBytes)
	case SortContextTokens:
		return cmpInt64(a.Session.TotalContextTokens, b.Session.TotalContextTokens)
	case SortModel:
		return cmpString(a.Session.Model, b.Session.Model)
	case SortTTY:
		return cmpString(a.Process.TTYName, b.Process.TTYName)
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	return a - b
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsDim exposes status.IsDim through the view package so callers of
// view don't need to import status separately just to decide styling.
func IsDim(s status.Status) bool {
	return status.IsDim(s)
}
