// Package snapshot defines the immutable picture of the dashboard's
// world at one instant and the Assembler that produces one every
// refresh tick.
package snapshot

import (
	"time"

	"github.com/mrf/otop/internal/correlate"
	"github.com/mrf/otop/internal/handles"
	"github.com/mrf/otop/internal/logts"
	"github.com/mrf/otop/internal/procfact"
	"github.com/mrf/otop/internal/status"
	"github.com/mrf/otop/internal/store"
)

// MCPServer is one entry in the host tool's MCP configuration, read
// once per tick.
type MCPServer struct {
	Name    string
	Type    string // "local" or "remote"
	Enabled bool
}

// Row pairs one observed process with the session bound to it, if
// any. SessionFact is the zero value when Bound is false.
type Row struct {
	Process procfact.ProcessFact
	Bound   bool
	Session store.SessionFact
	Status  status.Status
}

// Snapshot is the immutable, timestamped bundle the view layer
// renders. Once published, a Snapshot is never mutated; a new tick
// produces a new value and the assembler swaps it in by reference.
type Snapshot struct {
	TakenAt time.Time
	Rows    []Row
	Today   store.Aggregate
	Global  store.Aggregate
	MCP     []MCPServer
}

// Prober is the subset of *procfact.Prober the assembler depends on.
type Prober interface {
	Probe() []procfact.ProcessFact
}

// Resolver is the subset of *handles.Resolver the assembler depends on.
type Resolver interface {
	Resolve(pids []int) map[int]handles.Handle
}

// Reader is the subset of *store.Reader the assembler depends on.
type Reader interface {
	SessionInfo(sessionID string) store.SessionFact
	FindCandidateSessions(cwd string, startTimeMS int64) []store.CandidateSession
	FindRecentSessions(cwd string) []string
	TodayAggregate() store.Aggregate
	GlobalAggregate() store.Aggregate
}

// MCPSource supplies the MCP server list for one tick.
type MCPSource interface {
	Servers() []MCPServer
}

// Assembler drives one refresh tick: probe, resolve, correlate, fetch,
// infer, assemble, publish.
type Assembler struct {
	prober     Prober
	resolver   Resolver
	reader     Reader
	mcp        MCPSource
	thresholds status.Thresholds
	now        func() time.Time
}

// New wires an Assembler from its collaborators. mcp may be nil, in
// which case every tick reports an empty MCP server list. thresholds
// configures the Status Inferrer; pass status.DefaultThresholds() for
// spec.md's built-in cutoffs.
func New(prober Prober, resolver Resolver, reader Reader, mcp MCPSource, thresholds status.Thresholds) *Assembler {
	return &Assembler{prober: prober, resolver: resolver, reader: reader, mcp: mcp, thresholds: thresholds, now: time.Now}
}

// Tick runs the full pipeline once and returns the new Snapshot.
func (a *Assembler) Tick() *Snapshot {
	now := a.now()

	procs := a.prober.Probe()
	annotate(procs, a.resolver.Resolve(pids(procs)))

	bindings := correlate.Correlate(procs, a.reader)
	sessionByPID := make(map[int]string, len(bindings))
	for _, b := range bindings {
		sessionByPID[b.PID] = b.SessionID
	}

	rows := make([]Row, 0, len(procs))
	for _, p := range procs {
		sid := sessionByPID[p.PID]
		row := Row{Process: p}
		if sid != "" {
			fact := a.reader.SessionInfo(sid)
			if fact.SessionID != "" {
				row.Bound = true
				row.Session = fact
				row.Status = inferStatus(fact, p, now, a.thresholds)
			}
		}
		rows = append(rows, row)
	}

	snap := &Snapshot{
		TakenAt: now,
		Rows:    rows,
		Today:   a.reader.TodayAggregate(),
		Global:  a.reader.GlobalAggregate(),
	}
	if a.mcp != nil {
		snap.MCP = a.mcp.Servers()
	}
	return snap
}

// annotate fills each ProcessFact's Cwd and StartTimeMS from the
// resolved handle map, in place.
func annotate(procs []procfact.ProcessFact, resolved map[int]handles.Handle) {
	for i := range procs {
		h, ok := resolved[procs[i].PID]
		if !ok {
			continue
		}
		procs[i].Cwd = h.Cwd
		procs[i].StartTimeMS = logts.Decode(h.LogPath)
	}
}

func pids(procs []procfact.ProcessFact) []int {
	out := make([]int, len(procs))
	for i, p := range procs {
		out[i] = p.PID
	}
	return out
}

func inferStatus(fact store.SessionFact, proc procfact.ProcessFact, now time.Time, thresholds status.Thresholds) status.Status {
	age := time.Duration(0)
	if fact.LastMessageTimeMS > 0 {
		age = now.Sub(time.UnixMilli(fact.LastMessageTimeMS))
		if age < 0 {
			age = 0
		}
	}
	return status.Infer(status.Input{
		LastMessageRole: fact.LastMessageRole,
		LastFinish:      fact.LastFinish,
		MessageAge:      age,
		CPUPercent:      proc.CPUPercent,
		HasBoundProcess: true,
	}, thresholds)
}
