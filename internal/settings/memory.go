package settings

import (
	"sync"

	"portwatch/internal/ports"
)

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu                sync.Mutex
	favorites         map[uint16]bool
	watched           []ports.WatchedPort
	refreshInterval   int
	showNotifications *bool
}

// NewMemoryStore builds an empty in-memory store with default values.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{favorites: make(map[uint16]bool)}
}

func (m *MemoryStore) LoadFavorites() map[uint16]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint16]bool, len(m.favorites))
	for p := range m.favorites {
		out[p] = true
	}
	return out
}

func (m *MemoryStore) SaveFavorites(favorites map[uint16]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = make(map[uint16]bool, len(favorites))
	for p := range favorites {
		m.favorites[p] = true
	}
	return nil
}

func (m *MemoryStore) LoadWatched() []ports.WatchedPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.WatchedPort, len(m.watched))
	copy(out, m.watched)
	return out
}

func (m *MemoryStore) SaveWatched(watched []ports.WatchedPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched = make([]ports.WatchedPort, len(watched))
	copy(m.watched, watched)
	return nil
}

func (m *MemoryStore) LoadRefreshInterval() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshInterval > 0 {
		return m.refreshInterval
	}
	return DefaultRefreshInterval
}

func (m *MemoryStore) SaveRefreshInterval(seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = seconds
	return nil
}

func (m *MemoryStore) LoadShowNotifications() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.showNotifications != nil {
		return *m.showNotifications
	}
	return true
}

func (m *MemoryStore) SaveShowNotifications(show bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showNotifications = &show
	return nil
}

var _ Store = (*MemoryStore)(nil)
