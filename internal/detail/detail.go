// Package detail assembles the drill-in view for one session: either
// a live pane-capture transcript when the bound process sits inside a
// known terminal-multiplexer pane, or a formatted message history with
// its todo list otherwise.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/mrf/otop/internal/store"
)

// historyLimit bounds how many messages are fetched for the formatted
// fallback view.
const historyLimit = 100

// todoOrder is the original tool's display grouping for the todo
// panel: in-progress items are the most actionable and surface first.
var todoOrder = []store.TodoStatus{
	store.TodoInProgress,
	store.TodoPending,
	store.TodoCompleted,
	store.TodoCancelled,
}

// Detail is the complete drill-in payload for one session.
type Detail struct {
	SessionID string
	PaneLines []string // non-nil when a live pane capture is available
	Messages  []RenderedMessage
	Todos     []store.TodoItem // grouped by todoOrder
}

// RenderedMessage is one message in the formatted history, with its
// text preview rendered through glamour as markdown; the raw preview is
// kept when rendering fails or the preview is blank.
type RenderedMessage struct {
	Role     string
	TimeMS   int64
	Finish   string
	Rendered string
}

// Reader is the subset of *store.Reader the provider needs.
type Reader interface {
	RecentMessages(sessionID string, limit int) []store.RecentMessage
	SessionInfo(sessionID string) store.SessionFact
}

// PaneCapture maps a TTY device name to its pane's current screen
// lines, or reports absence. Implemented by *tmux.Resolver.
type PaneCapture interface {
	Lines(ttyName string) ([]string, bool)
}

// Provider assembles Detail payloads on demand — it is not driven by
// the tick cadence, only by the user opening a drill-in view.
type Provider struct {
	reader Reader
	panes  PaneCapture
	render func(markdown string) (string, error)
}

// New wires a Provider. panes may be nil, in which case every session
// falls back to the formatted message history.
func New(reader Reader, panes PaneCapture) *Provider {
	return &Provider{reader: reader, panes: panes, render: renderMarkdown}
}

// Load assembles the Detail for sessionID, preferring a live pane
// capture over TTY ttyName when one is available.
func (p *Provider) Load(sessionID, ttyName string) Detail {
	d := Detail{SessionID: sessionID}

	if p.panes != nil {
		if lines, ok := p.panes.Lines(ttyName); ok {
			d.PaneLines = lines
			return d
		}
	}

	for _, m := range p.reader.RecentMessages(sessionID, historyLimit) {
		rendered := m.Preview
		if r, err := p.render(m.Preview); err == nil {
			rendered = r
		}
		d.Messages = append(d.Messages, RenderedMessage{
			Role:     m.Role,
			TimeMS:   m.TimeMS,
			Finish:   m.Finish,
			Rendered: strings.TrimRight(rendered, "\n"),
		})
	}

	d.Todos = groupTodos(p.reader.SessionInfo(sessionID).Todos)
	return d
}

// groupTodos reorders todos into the original tool's display grouping
// without otherwise changing relative order within a group.
func groupTodos(todos []store.TodoItem) []store.TodoItem {
	if len(todos) == 0 {
		return nil
	}
	out := make([]store.TodoItem, 0, len(todos))
	for _, status := range todoOrder {
		for _, t := range todos {
			if t.Status == status {
				out = append(out, t)
			}
		}
	}
	return out
}

func renderMarkdown(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("empty input")
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
