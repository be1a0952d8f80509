package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"portwatch/internal/ports"
	"portwatch/pkg/logging"
)

// DefaultRefreshInterval is the auto-refresh period, in seconds, used when
// no persisted value exists.
const DefaultRefreshInterval = 5

// Store is the narrow persistence contract the registry consumes. Load
// calls never fail: missing or unreadable state falls back to defaults
// silently. Save calls report errors so callers can log them, but a failed
// save must never break the in-memory state.
type Store interface {
	LoadFavorites() map[uint16]bool
	SaveFavorites(favorites map[uint16]bool) error

	LoadWatched() []ports.WatchedPort
	SaveWatched(watched []ports.WatchedPort) error

	LoadRefreshInterval() int
	SaveRefreshInterval(seconds int) error

	LoadShowNotifications() bool
	SaveShowNotifications(show bool) error
}

// document is the persisted JSON schema. ShowNotifications is a pointer so
// an absent field can default to true rather than false.
type document struct {
	Favorites         []uint16            `json:"favorites,omitempty"`
	Watched           []ports.WatchedPort `json:"watched,omitempty"`
	RefreshInterval   int                 `json:"refreshInterval,omitempty"`
	ShowNotifications *bool               `json:"showNotifications,omitempty"`
}

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

const settingsDir = ".config/portwatch"
const settingsFileName = "settings.json"

// DefaultPath returns the settings file location under the user's home.
func DefaultPath() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, settingsDir, settingsFileName), nil
}

// FileStore persists settings as a single JSON document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore builds a store against the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewDefaultFileStore builds a store at the default location.
func NewDefaultFileStore() (*FileStore, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolving settings path: %w", err)
	}
	return NewFileStore(path), nil
}

// read loads the document, degrading to an empty document on any failure.
func (s *FileStore) read() document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Settings", "read %s failed, using defaults: %v", s.path, err)
		}
		return document{}
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn("Settings", "parse %s failed, using defaults: %v", s.path, err)
		return document{}
	}
	return doc
}

func (s *FileStore) write(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// update performs a read-modify-write under the store lock so concurrent
// saves of different fields don't clobber each other.
func (s *FileStore) update(mutate func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	mutate(&doc)
	return s.write(doc)
}

func (s *FileStore) LoadFavorites() map[uint16]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	favorites := make(map[uint16]bool)
	for _, p := range s.read().Favorites {
		favorites[p] = true
	}
	return favorites
}

func (s *FileStore) SaveFavorites(favorites map[uint16]bool) error {
	// Sorted for a stable file; the set itself is unordered.
	sorted := make([]uint16, 0, len(favorites))
	for p := range favorites {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return s.update(func(doc *document) { doc.Favorites = sorted })
}

func (s *FileStore) LoadWatched() []ports.WatchedPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Watched
}

func (s *FileStore) SaveWatched(watched []ports.WatchedPort) error {
	copied := make([]ports.WatchedPort, len(watched))
	copy(copied, watched)
	return s.update(func(doc *document) { doc.Watched = copied })
}

func (s *FileStore) LoadRefreshInterval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.read().RefreshInterval; v > 0 {
		return v
	}
	return DefaultRefreshInterval
}

func (s *FileStore) SaveRefreshInterval(seconds int) error {
	return s.update(func(doc *document) { doc.RefreshInterval = seconds })
}

func (s *FileStore) LoadShowNotifications() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.read().ShowNotifications; v != nil {
		return *v
	}
	return true
}

func (s *FileStore) SaveShowNotifications(show bool) error {
	return s.update(func(doc *document) { doc.ShowNotifications = &show })
}

var _ Store = (*FileStore)(nil)
