package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"portwatch/internal/classify"
	"portwatch/internal/ports"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	watchedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	confirmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	categoryColors = map[classify.Category]lipgloss.Style{
		classify.CategoryWebServer:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		classify.CategoryDatabase:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		classify.CategoryDevelopment: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		classify.CategorySystem:      lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
		classify.CategoryOther:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf("portwatch · %s (%d)", m.viewMode, len(m.rows))
	if m.refreshing {
		title = m.spin.View() + " " + title
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString("search: " + m.search.View())
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-7s %-22s %-8s %-12s %-10s %s",
		"PORT", "PROCESS", "PID", "CATEGORY", "USER", "ADDRESS")))
	b.WriteString("\n")

	visible := m.visibleRows()
	for i, rec := range m.rows {
		if i < visible.start || i >= visible.end {
			continue
		}
		b.WriteString(m.renderRow(rec, i == m.cursor))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(inactiveStyle.Render("  no ports match"))
		b.WriteString("\n")
	}

	if m.confirmKill != nil {
		b.WriteString(confirmStyle.Render(fmt.Sprintf(
			"kill %s (pid %d) on port %d? [y/N]",
			m.confirmKill.ProcessName, m.confirmKill.PID, m.confirmKill.Port)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(
		"↑/↓ move · / search · tab view · f fav · w watch · x kill · c copy · r refresh · q quit"))
	return b.String()
}

type rowRange struct{ start, end int }

// visibleRows windows the table around the cursor so it fits the terminal.
func (m Model) visibleRows() rowRange {
	max := m.height - 6
	if max < 5 {
		max = 5
	}
	if len(m.rows) <= max {
		return rowRange{0, len(m.rows)}
	}
	start := m.cursor - max/2
	if start < 0 {
		start = 0
	}
	end := start + max
	if end > len(m.rows) {
		end = len(m.rows)
		start = end - max
	}
	return rowRange{start, end}
}

func (m Model) renderRow(rec ports.Record, selected bool) string {
	marker := "  "
	if m.registry.IsFavorite(rec.Port) {
		marker = favoriteStyle.Render("★ ")
	} else if m.registry.IsWatched(rec.Port) {
		marker = watchedStyle.Render("◉ ")
	}

	pid := "-"
	if rec.IsActive {
		pid = fmt.Sprintf("%d", rec.PID)
	}
	if m.killing[rec.PID] && rec.IsActive {
		pid += " ✗"
	}

	// Pad before styling: ANSI escapes would throw off %-12s widths.
	category := categoryColors[rec.Category].Render(fmt.Sprintf("%-12s", rec.Category))

	line := fmt.Sprintf("%-7s %-22s %-8s %s %-10s %s",
		rec.DisplayPort(),
		truncate(rec.ProcessName, 22),
		pid,
		category,
		truncate(rec.User, 10),
		truncate(rec.Address, 24),
	)

	switch {
	case selected:
		return marker + selectedStyle.Render(line)
	case !rec.IsActive:
		return marker + inactiveStyle.Render(line)
	default:
		return marker + line
	}
}

// truncate clips a string to the given display width, wide runes included.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width-1, "…")
}
