package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"portwatch/internal/notify"
	"portwatch/internal/ports"
	"portwatch/internal/registry"
	"portwatch/internal/terminate"
)

// ViewMode selects which slice of the registry the table shows.
type ViewMode int

const (
	ViewAll ViewMode = iota
	ViewFavorites
	ViewWatched
)

// String provides a human-readable representation of the ViewMode.
func (m ViewMode) String() string {
	switch m {
	case ViewFavorites:
		return "Favorites"
	case ViewWatched:
		return "Watched"
	default:
		return "All ports"
	}
}

// Messages delivered into the bubbletea loop.
type (
	// engineEventMsg wraps one event from the registry's bus.
	engineEventMsg struct{ event notify.Event }

	// killDoneMsg reports a finished termination request.
	killDoneMsg struct {
		record ports.Record
		result terminate.Result
	}

	// statusExpiredMsg clears the transient status line.
	statusExpiredMsg struct{ id int }
)

// Model is the bubbletea model for the live port dashboard. All state
// mutation goes through the registry; the model only holds presentation
// state plus the snapshot it last rendered.
type Model struct {
	ctx      context.Context
	registry *registry.Registry
	events   *notify.Subscription

	rows     []ports.Record
	cursor   int
	viewMode ViewMode

	search    textinput.Model
	searching bool

	spin       spinner.Model
	refreshing bool

	confirmKill *ports.Record // non-nil while waiting for kill confirmation
	killing     map[int32]bool

	status   string
	statusID int

	width  int
	height int
}

// NewModel builds the dashboard model. The registry's auto-refresh loop
// is expected to be running already; the model just listens for events.
func NewModel(ctx context.Context, reg *registry.Registry, bus notify.Bus) Model {
	search := textinput.New()
	search.Placeholder = "process, command, or port"
	search.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		registry: reg,
		events:   bus.SubscribeChannel(nil, 64),
		search:   search,
		spin:     sp,
		killing:  make(map[int32]bool),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spin.Tick)
}

// waitForEvent blocks on the bus subscription and resurfaces the next
// engine event as a tea message.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events.Channel
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}

// killCmd runs the two-phase termination off the UI loop.
func (m Model) killCmd(record ports.Record) tea.Cmd {
	reg := m.registry
	ctx := m.ctx
	return func() tea.Msg {
		res := reg.Kill(ctx, record.PID, record.Port)
		return killDoneMsg{record: record, result: res}
	}
}

// statusCmd arms the expiry timer for a transient status message.
func statusCmd(id int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}

// reload pulls a fresh view slice from the registry.
func (m *Model) reload() {
	filter := ports.Filter{SearchText: m.search.Value()}
	switch m.viewMode {
	case ViewFavorites:
		m.rows = filterRecords(m.registry.FavoritesView(), filter)
	case ViewWatched:
		m.rows = filterRecords(m.registry.WatchedView(), filter)
	default:
		m.rows = m.registry.View(filter)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// filterRecords applies the search text to an overlay view.
func filterRecords(records []ports.Record, f ports.Filter) []ports.Record {
	if f.SearchText == "" {
		return records
	}
	var out []ports.Record
	for _, r := range records {
		if f.Matches(r, false, false) {
			out = append(out, r)
		}
	}
	return out
}

// selected returns the record under the cursor, if any.
func (m Model) selected() (ports.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return ports.Record{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusID++
	return statusCmd(m.statusID)
}
