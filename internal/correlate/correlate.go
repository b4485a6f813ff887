// Package correlate implements the three-tier correlation ladder and the
// two-pass claimed-set disambiguation that map running opencode
// processes to host-tool session ids.
package correlate

import (
	"sort"

	"github.com/mrf/otop/internal/procfact"
	"github.com/mrf/otop/internal/store"
)

// SessionLookup is the subset of the Session Store Reader's query
// surface the correlator needs. Implemented by *store.Reader; declared
// here so the correlator can be tested with a fake in place of a real
// database.
type SessionLookup interface {
	FindCandidateSessions(cwd string, startTimeMS int64) []store.CandidateSession
	FindRecentSessions(cwd string) []string
}

// Binding is the correlator's verdict for one process: either a bound
// session id, or "" if the process binds to nothing.
type Binding struct {
	PID       int
	SessionID string // "" means unbound
}

// Correlate runs the full two-pass algorithm over procs and returns a
// Binding for every process, including unbound ones. store may be nil,
// in which case tier 2 and tier 3 never produce a binding (every
// process either binds via tier 1 or not at all) — this lets callers
// degrade gracefully when the database is unreachable.
func Correlate(procs []procfact.ProcessFact, store SessionLookup) []Binding {
	claimed := make(map[string]bool)
	bindings := make(map[int]string, len(procs))

	// Pass 1: explicit session ids win outright and do not consult the
	// database. Tool processes never bind, explicit flag or not.
	var remaining []procfact.ProcessFact
	for _, p := range procs {
		if p.IsToolProcess {
			bindings[p.PID] = ""
			continue
		}
		if p.ExplicitSessionID != "" {
			bindings[p.PID] = p.ExplicitSessionID
			claimed[p.ExplicitSessionID] = true
			continue
		}
		remaining = append(remaining, p)
	}

	// Pass 2: oldest-first so the process that has been accumulating
	// messages longest gets first pick of the busiest session; a newer
	// process sharing the same directory falls through to the next
	// candidate instead of stealing it.
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].StartTimeMS < remaining[j].StartTimeMS
	})

	for _, p := range remaining {
		sid := resolveTiered(p, store, claimed)
		bindings[p.PID] = sid
		if sid != "" {
			claimed[sid] = true
		}
	}

	out := make([]Binding, 0, len(procs))
	for _, p := range procs {
		out = append(out, Binding{PID: p.PID, SessionID: bindings[p.PID]})
	}
	return out
}

// resolveTiered runs tier 2 then tier 3 for a single process against
// the current claimed set.
func resolveTiered(p procfact.ProcessFact, store SessionLookup, claimed map[string]bool) string {
	if store == nil {
		return ""
	}
	if p.Cwd == "" {
		return ""
	}

	if p.StartTimeMS != 0 {
		for _, c := range store.FindCandidateSessions(p.Cwd, p.StartTimeMS) {
			if !claimed[c.ID] {
				return c.ID
			}
		}
	}

	for _, id := range store.FindRecentSessions(p.Cwd) {
		if !claimed[id] {
			return id
		}
	}

	return ""
}
