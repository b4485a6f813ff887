package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the dashboard.
type KeyMap struct {
	Up              key.Binding
	Down            key.Binding
	Enter           key.Binding
	Escape          key.Binding
	Quit            key.Binding
	Filter          key.Binding
	Sort            key.Binding
	ToggleTool      key.Binding
	ToggleNoSession key.Binding
	ToggleNonInter  key.Binding
	CopySessionID   key.Binding
	CopyCwd         key.Binding
	ToggleMCP       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev row"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next row"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "detail"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close detail / close filter input"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort key"),
		),
		ToggleTool: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle tool processes"),
		),
		ToggleNoSession: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "toggle no-session rows"),
		),
		ToggleNonInter: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle non-interactive"),
		),
		CopySessionID: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy session id"),
		),
		CopyCwd: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "copy cwd"),
		),
		ToggleMCP: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle mcp servers panel"),
		),
	}
}
