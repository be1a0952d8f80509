package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/notify"
	"portwatch/internal/ports"
	"portwatch/internal/registry"
	"portwatch/internal/settings"
	"portwatch/internal/terminate"
)

type staticScanner struct {
	mu      sync.Mutex
	records []ports.Record
}

func (s *staticScanner) Scan(context.Context) ([]ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, nil
}

type stubTerminator struct {
	mu     sync.Mutex
	killed []int32
}

func (t *stubTerminator) Kill(_ context.Context, pid int32) terminate.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.killed = append(t.killed, pid)
	return terminate.Result{PID: pid, Outcome: terminate.OutcomeKilled}
}

func (t *stubTerminator) KillAllOnPort(context.Context, uint16) (int, error) { return 0, nil }

func newTestModel(t *testing.T, records []ports.Record) (Model, *registry.Registry, *stubTerminator) {
	t.Helper()
	term := &stubTerminator{}
	bus := notify.NewBus()
	t.Cleanup(bus.Close)

	reg := registry.New(registry.Deps{
		Scanner:    &staticScanner{records: records},
		Terminator: term,
		Store:      settings.NewMemoryStore(),
		Bus:        bus,
	})
	require.True(t, reg.Refresh(context.Background()))

	m := NewModel(context.Background(), reg, bus)
	m.reload()
	return m, reg, term
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleRecords() []ports.Record {
	return []ports.Record{
		ports.NewRecord(80, 1, "nginx", "0.0.0.0", "www", "nginx"),
		ports.NewRecord(3000, 2, "node", "127.0.0.1", "dev", "node server.js"),
		ports.NewRecord(5432, 3, "postgres", "127.0.0.1", "postgres", "postgres -D /data"),
	}
}

func TestModel_ReloadShowsSnapshot(t *testing.T) {
	m, _, _ := newTestModel(t, sampleRecords())
	require.Len(t, m.rows, 3)
	assert.Equal(t, uint16(80), m.rows[0].Port)
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	m, _, _ := newTestModel(t, sampleRecords())

	next, _ := m.Update(key("j"))
	m = next.(Model)
	next, _ = m.Update(key("j"))
	m = next.(Model)
	next, _ = m.Update(key("j")) // past the end
	m = next.(Model)
	assert.Equal(t, 2, m.cursor)

	for i := 0; i < 5; i++ {
		next, _ = m.Update(key("k"))
		m = next.(Model)
	}
	assert.Equal(t, 0, m.cursor)
}

func TestModel_ViewModeCycles(t *testing.T) {
	m, _, _ := newTestModel(t, sampleRecords())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, ViewFavorites, m.viewMode)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, ViewWatched, m.viewMode)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, ViewAll, m.viewMode)
}

func TestModel_FavoriteToggleReorders(t *testing.T) {
	m, reg, _ := newTestModel(t, sampleRecords())

	// Move to the postgres row and favorite it.
	m.cursor = 2
	next, _ := m.Update(key("f"))
	m = next.(Model)

	assert.True(t, reg.IsFavorite(5432))
	assert.Equal(t, uint16(5432), m.rows[0].Port, "favorite sorts first")
}

func TestModel_KillRequiresConfirmation(t *testing.T) {
	m, _, term := newTestModel(t, sampleRecords())

	next, _ := m.Update(key("x"))
	m = next.(Model)
	require.NotNil(t, m.confirmKill)
	assert.Empty(t, term.killed, "no kill before confirmation")

	// Anything but y cancels.
	next, _ = m.Update(key("n"))
	m = next.(Model)
	assert.Nil(t, m.confirmKill)
	assert.Empty(t, term.killed)

	// Confirming issues the kill command.
	next, _ = m.Update(key("x"))
	m = next.(Model)
	next, cmd := m.Update(key("y"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()

	done, ok := msg.(killDoneMsg)
	require.True(t, ok)
	assert.True(t, done.result.Success())
	assert.Equal(t, []int32{1}, term.killed)
}

func TestModel_SearchFiltersRows(t *testing.T) {
	m, _, _ := newTestModel(t, sampleRecords())

	next, _ := m.Update(key("/"))
	m = next.(Model)
	assert.True(t, m.searching)

	next, _ = m.Update(key("p"))
	m = next.(Model)
	next, _ = m.Update(key("o"))
	m = next.(Model)
	next, _ = m.Update(key("s"))
	m = next.(Model)

	require.Len(t, m.rows, 1)
	assert.Equal(t, "postgres", m.rows[0].ProcessName)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	assert.False(t, m.searching)
	assert.Len(t, m.rows, 3, "escape clears the filter")
}

func TestModel_ViewRendersWithoutPanic(t *testing.T) {
	m, _, _ := newTestModel(t, sampleRecords())
	m.width = 100
	m.height = 30

	out := m.View()
	assert.Contains(t, out, "portwatch")
	assert.Contains(t, out, "nginx")
	assert.Contains(t, out, "5432")
}
