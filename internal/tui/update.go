package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"portwatch/internal/notify"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case engineEventMsg:
		return m.handleEngineEvent(msg)

	case killDoneMsg:
		delete(m.killing, msg.record.PID)
		var cmd tea.Cmd
		if msg.result.Success() {
			cmd = m.setStatus(fmt.Sprintf("killed %s (pid %d) on port %d",
				msg.record.ProcessName, msg.record.PID, msg.record.Port))
		} else {
			cmd = m.setStatus(fmt.Sprintf("kill failed for pid %d on port %d: %v",
				msg.record.PID, msg.record.Port, msg.result.Err))
		}
		return m, cmd

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m Model) handleEngineEvent(msg engineEventMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForEvent()}

	switch msg.event.Type() {
	case notify.EventSnapshotUpdated:
		m.refreshing = false
		m.reload()
	case notify.EventPortStarted, notify.EventPortStopped, notify.EventNotice:
		cmds = append(cmds, m.setStatus(msg.event.String()))
	case notify.EventKillResult:
		m.reload()
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search input captures everything except escape and enter.
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.reload()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.reload()
			return m, cmd
		}
	}

	// A pending kill confirmation only accepts y / n.
	if m.confirmKill != nil {
		switch msg.String() {
		case "y", "Y":
			record := *m.confirmKill
			m.confirmKill = nil
			m.killing[record.PID] = true
			return m, m.killCmd(record)
		default:
			m.confirmKill = nil
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.events.Close()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "/":
		m.searching = true
		m.search.Focus()
		return m, nil

	case "tab":
		m.viewMode = (m.viewMode + 1) % 3
		m.cursor = 0
		m.reload()

	case "r":
		m.refreshing = true
		reg := m.registry
		ctx := m.ctx
		return m, func() tea.Msg {
			reg.Refresh(ctx)
			return nil
		}

	case "f":
		if rec, ok := m.selected(); ok {
			if m.registry.ToggleFavorite(rec.Port) {
				m.reload()
				return m, m.setStatus(fmt.Sprintf("port %d added to favorites", rec.Port))
			}
			m.reload()
			return m, m.setStatus(fmt.Sprintf("port %d removed from favorites", rec.Port))
		}

	case "w":
		if rec, ok := m.selected(); ok {
			if _, added := m.registry.AddWatch(rec.Port); added {
				m.reload()
				return m, m.setStatus(fmt.Sprintf("watching port %d", rec.Port))
			}
			m.registry.RemoveWatch(rec.Port)
			m.reload()
			return m, m.setStatus(fmt.Sprintf("stopped watching port %d", rec.Port))
		}

	case "x":
		if rec, ok := m.selected(); ok && rec.IsActive && !m.killing[rec.PID] {
			m.confirmKill = &rec
		}

	case "c":
		if rec, ok := m.selected(); ok && rec.Command != "" {
			if err := clipboard.WriteAll(rec.Command); err == nil {
				return m, m.setStatus("command line copied")
			}
			return m, m.setStatus("clipboard unavailable")
		}
	}

	return m, nil
}
