// Package tui is the bubbletea shell that renders Snapshot/view data
// and dispatches keystrokes. It is explicitly out-of-core-scope glue
// per the dashboard's design: the engine underneath (snapshot,
// correlate, status, view, detail) has no dependency on this package.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder = lipgloss.Color("#4b5563")
	colorDimmed = lipgloss.Color("#6b7280")
	colorBright = lipgloss.Color("#f9fafb")

	colorGenerating = lipgloss.Color("#2563eb")
	colorToolUse    = lipgloss.Color("#d97706")
	colorBusy       = lipgloss.Color("#f59e0b")
	colorStale      = lipgloss.Color("#dc2626")
	colorIdle       = lipgloss.Color("#4b5563")
	colorTruncated  = lipgloss.Color("#dc2626")
	colorThinking   = lipgloss.Color("#22c55e")
	colorQueued     = lipgloss.Color("#6b7280")
	colorUnknown    = lipgloss.Color("#6b7280")

	styleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleDimmed = lipgloss.NewStyle().Foreground(colorDimmed)
	styleBright = lipgloss.NewStyle().Foreground(colorBright)
)

// statusColor returns the Lip Gloss color for an inferred status label.
func statusColor(status string) lipgloss.Color {
	switch status {
	case "generating":
		return colorGenerating
	case "tool use":
		return colorToolUse
	case "busy":
		return colorBusy
	case "stale":
		return colorStale
	case "idle":
		return colorIdle
	case "truncated":
		return colorTruncated
	case "thinking":
		return colorThinking
	case "queued":
		return colorQueued
	default:
		return colorUnknown
	}
}
