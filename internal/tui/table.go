package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrf/otop/internal/snapshot"
	"github.com/mrf/otop/internal/status"
)

const (
	colPID    = 7
	colStatus = 11
	colTitle  = 24
	colModel  = 12
	colCtx    = 9
	colMsgs   = 6
	colCPU    = 6
	colMem    = 8
	colUptime = 9
	colCwd    = 20
)

// renderTable renders the visible rows as a fixed-column table, the
// same layout style as a leaderboard: header row, rule, then one line
// per row.
func renderTable(rows []snapshot.Row, width int) string {
	header := fmt.Sprintf("  %-*s %-*s %-*s %-*s %*s %*s %*s %*s %*s %-*s",
		colPID, "PID",
		colStatus, "STATUS",
		colTitle, "TITLE",
		colModel, "MODEL",
		colCtx, "CONTEXT",
		colMsgs, "MSGS",
		colCPU, "CPU%",
		colMem, "MEM",
		colUptime, "UPTIME",
		colCwd, "CWD",
	)

	lines := []string{
		styleDimmed.Render(header),
		styleDimmed.Render("  " + strings.Repeat("─", min(width-4, len(header)))),
	}

	if len(rows) == 0 {
		lines = append(lines, styleDimmed.Render("  no sessions"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, row := range rows {
		lines = append(lines, renderRow(row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRow(row snapshot.Row) string {
	pid := fmt.Sprintf("%-*d", colPID, row.Process.PID)

	statusLabel := "no-session"
	if row.Bound {
		statusLabel = string(row.Status)
	}
	statusStr := lipgloss.NewStyle().Foreground(statusColor(statusLabel)).Width(colStatus).Render(statusLabel)

	title := truncate(row.Session.Title, colTitle)
	titleStyle := styleBright
	if row.Bound && status.IsDim(row.Status) {
		titleStyle = styleDimmed
	}
	titleStr := titleStyle.Width(colTitle).Render(title)

	model := truncate(row.Session.Model, colModel)
	modelStr := styleDimmed.Width(colModel).Render(model)

	ctxStr := styleBright.Width(colCtx).Align(lipgloss.Right).
		Render(formatTokens(row.Session.TotalContextTokens))
	msgsStr := styleBright.Width(colMsgs).Align(lipgloss.Right).
		Render(fmt.Sprintf("%d", row.Session.MessageCount))
	cpuStr := styleBright.Width(colCPU).Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f", row.Process.CPUPercent))
	memStr := styleBright.Width(colMem).Align(lipgloss.Right).
		Render(row.Process.RSSHumanized())
	uptimeStr := styleDimmed.Width(colUptime).Render(row.Process.ElapsedRaw)
	cwdStr := styleDimmed.Width(colCwd).Render(truncate(row.Process.Cwd, colCwd))

	return fmt.Sprintf("  %s %s %s %s %s %s %s %s %s %s",
		pid, statusStr, titleStr, modelStr, ctxStr, msgsStr, cpuStr, memStr, uptimeStr, cwdStr)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// formatTokens renders a token count with K/M suffixes. Monotone in the
// value it denotes (prefix scaled by its suffix): n1 <= n2 implies
// formatTokens(n1) denotes no more than formatTokens(n2), since each
// tier rounds the same division to one decimal. The bare prefix is not
// monotone across tiers: 999_999 renders as "1000.0K", 1_000_000 as "1.0M".
func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
