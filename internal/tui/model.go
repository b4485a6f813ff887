package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrf/otop/internal/clipboard"
	"github.com/mrf/otop/internal/detail"
	"github.com/mrf/otop/internal/snapshot"
	"github.com/mrf/otop/internal/view"
)

// sortCycle is the order the 's' key steps through.
var sortCycle = []view.SortKey{
	view.SortStatus, view.SortTitle, view.SortCPU, view.SortMem,
	view.SortContextTokens, view.SortMessageCount, view.SortUptime,
}

// tickMsg carries a freshly assembled snapshot to Update.
type tickMsg struct{ snap *snapshot.Snapshot }

// detailMsg carries a freshly loaded detail payload to Update.
type detailMsg struct{ d detail.Detail }

// Model is the root Bubble Tea model driving the dashboard.
type Model struct {
	assembler *snapshot.Assembler
	detailer  *detail.Provider
	interval  time.Duration

	keys KeyMap

	width, height int

	snap     *snapshot.Snapshot
	rows     []snapshot.Row
	policy   view.Policy
	selected int

	filtering bool
	filterBox textinput.Model

	detailOpen bool
	detailData detail.Detail

	showMCP bool

	quitting bool
}

// New wires a Model from its collaborators. initialPolicy seeds the
// view's starting filter/sort/visibility state, normally built from
// the dashboard's own config.
func New(assembler *snapshot.Assembler, detailer *detail.Provider, interval time.Duration, initialPolicy view.Policy) Model {
	fb := textinput.New()
	fb.Placeholder = "filter"
	fb.Prompt = "/ "

	return Model{
		assembler: assembler,
		detailer:  detailer,
		interval:  interval,
		keys:      DefaultKeyMap(),
		filterBox: fb,
		policy:    initialPolicy,
	}
}

// Init kicks off the first tick immediately.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return func() tea.Msg {
		return tickMsg{snap: m.assembler.Tick()}
	}
}

func (m Model) scheduleCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return m.tickCmd()()
	})
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.snap = msg.snap
		m.rows = view.Filter(m.snap, m.policy)
		if m.selected >= len(m.rows) {
			m.selected = max(0, len(m.rows)-1)
		}
		return m, m.scheduleCmd()

	case detailMsg:
		m.detailData = msg.d
		m.detailOpen = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch {
		case msg.Type == tea.KeyEnter, msg.Type == tea.KeyEsc:
			m.filtering = false
			m.policy.Filter = m.filterBox.Value()
			m.rows = view.Filter(m.snap, m.policy)
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterBox, cmd = m.filterBox.Update(msg)
			return m, cmd
		}
	}

	if m.detailOpen {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
			m.detailOpen = false
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterBox.SetValue(m.policy.Filter)
		m.filterBox.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Sort):
		m.policy.SortKey = nextSortKey(m.policy.SortKey)
		m.rows = view.Filter(m.snap, m.policy)
		return m, nil
	case key.Matches(msg, m.keys.ToggleTool):
		m.policy.ShowToolProcesses = !m.policy.ShowToolProcesses
		m.rows = view.Filter(m.snap, m.policy)
		return m, nil
	case key.Matches(msg, m.keys.ToggleNoSession):
		m.policy.ShowNoSession = !m.policy.ShowNoSession
		m.rows = view.Filter(m.snap, m.policy)
		return m, nil
	case key.Matches(msg, m.keys.ToggleNonInter):
		m.policy.ShowNonInteractive = !m.policy.ShowNonInteractive
		m.rows = view.Filter(m.snap, m.policy)
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return m, m.loadDetailCmd()
	case key.Matches(msg, m.keys.ToggleMCP):
		m.showMCP = !m.showMCP
		return m, nil
	case key.Matches(msg, m.keys.CopySessionID):
		if row, ok := m.selectedRow(); ok && row.Bound {
			clipboard.Copy(row.Session.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.CopyCwd):
		if row, ok := m.selectedRow(); ok {
			clipboard.Copy(row.Process.Cwd)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) selectedRow() (snapshot.Row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return snapshot.Row{}, false
	}
	return m.rows[m.selected], true
}

func (m Model) loadDetailCmd() tea.Cmd {
	row, ok := m.selectedRow()
	if !ok || !row.Bound {
		return nil
	}
	sessionID := row.Session.SessionID
	tty := row.Process.TTYName
	return func() tea.Msg {
		return detailMsg{d: m.detailer.Load(sessionID, tty)}
	}
}

func nextSortKey(current view.SortKey) view.SortKey {
	for i, k := range sortCycle {
		if k == current {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

// View renders the current frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.detailOpen {
		return m.renderDetail()
	}

	width := m.width
	if width < 40 {
		width = 80
	}

	header := m.renderHeader()
	table := renderTable(m.rows, width)

	sections := []string{header, table}
	if m.showMCP {
		sections = append(sections, m.renderMCPPanel())
	}
	if m.filtering {
		sections = append(sections, m.filterBox.View())
	}
	sections = append(sections, styleDimmed.Render(m.helpLine()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	if m.snap == nil {
		return styleDimmed.Render("collecting…")
	}
	today := m.snap.Today
	global := m.snap.Global
	stats := fmt.Sprintf("sessions: %d  |  today: %d msgs  |  all-time: %d sessions / %d msgs",
		len(m.rows), today.MessageCount, global.SessionCount, global.MessageCount)
	return styleHeader.Render(stats)
}

func (m Model) helpLine() string {
	parts := []string{"/ filter", "s sort", "t tools", "n no-session", "i non-interactive", "m mcps", "enter detail", "y copy id", "q quit"}
	return strings.Join(parts, "  ")
}

// renderMCPPanel shows the host tool's global MCP server list, split
// into enabled and disabled groups, the toggleable panel from the
// original MCPS SERVERS view.
func (m Model) renderMCPPanel() string {
	var body strings.Builder
	body.WriteString(styleHeader.Render(" MCP SERVERS"))
	body.WriteString("\n")

	if m.snap == nil || len(m.snap.MCP) == 0 {
		body.WriteString(styleDimmed.Render("  (no config found)"))
		return body.String()
	}

	var enabled, disabled []string
	for _, s := range m.snap.MCP {
		if s.Enabled {
			enabled = append(enabled, s.Name)
		} else {
			disabled = append(disabled, s.Name)
		}
	}

	if len(enabled) > 0 {
		body.WriteString("  enabled: " + strings.Join(enabled, ", "))
		body.WriteString("\n")
	}
	if len(disabled) > 0 {
		names := disabled
		suffix := ""
		if len(names) > 5 {
			names = names[:5]
			suffix = "…"
		}
		body.WriteString(fmt.Sprintf("  disabled: %d servers (%s%s)", len(disabled), strings.Join(names, ", "), suffix))
	}

	return body.String()
}

func (m Model) renderDetail() string {
	d := m.detailData
	var body strings.Builder
	body.WriteString(styleHeader.Render("session " + d.SessionID))
	body.WriteString("\n\n")

	if d.PaneLines != nil {
		for _, line := range d.PaneLines {
			body.WriteString(line)
			body.WriteString("\n")
		}
	} else {
		for _, msg := range d.Messages {
			body.WriteString(styleDimmed.Render(msg.Role))
			body.WriteString("\n")
			body.WriteString(msg.Rendered)
			body.WriteString("\n\n")
		}
		if len(d.Todos) > 0 {
			body.WriteString(styleHeader.Render("todos"))
			body.WriteString("\n")
			for _, t := range d.Todos {
				body.WriteString(fmt.Sprintf("[%s] %s\n", t.Status, t.Content))
			}
		}
	}
	body.WriteString("\n")
	body.WriteString(styleDimmed.Render("esc to close"))

	return styleBorder.Render(body.String())
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
