package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portwatch/internal/ports"
)

func newTempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
}

func TestFileStore_DefaultsWhenMissing(t *testing.T) {
	s := newTempStore(t)

	assert.Empty(t, s.LoadFavorites())
	assert.Empty(t, s.LoadWatched())
	assert.Equal(t, DefaultRefreshInterval, s.LoadRefreshInterval())
	assert.True(t, s.LoadShowNotifications())
}

func TestFileStore_DefaultsOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewFileStore(path)

	assert.Empty(t, s.LoadFavorites())
	assert.Equal(t, DefaultRefreshInterval, s.LoadRefreshInterval())
	assert.True(t, s.LoadShowNotifications())
}

func TestFileStore_RoundTripFavorites(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.SaveFavorites(map[uint16]bool{3000: true, 80: true}))

	loaded := s.LoadFavorites()
	assert.Len(t, loaded, 2)
	assert.True(t, loaded[80])
	assert.True(t, loaded[3000])
}

func TestFileStore_RoundTripWatched(t *testing.T) {
	s := newTempStore(t)
	w := ports.NewWatchedPort(5432)
	w.NotifyOnStop = false

	require.NoError(t, s.SaveWatched([]ports.WatchedPort{w}))

	loaded := s.LoadWatched()
	require.Len(t, loaded, 1)
	assert.Equal(t, w.ID, loaded[0].ID)
	assert.Equal(t, uint16(5432), loaded[0].Port)
	assert.True(t, loaded[0].NotifyOnStart)
	assert.False(t, loaded[0].NotifyOnStop)
}

func TestFileStore_SavesDoNotClobberOtherFields(t *testing.T) {
	s := newTempStore(t)

	require.NoError(t, s.SaveFavorites(map[uint16]bool{8080: true}))
	require.NoError(t, s.SaveRefreshInterval(10))
	require.NoError(t, s.SaveShowNotifications(false))

	assert.True(t, s.LoadFavorites()[8080])
	assert.Equal(t, 10, s.LoadRefreshInterval())
	assert.False(t, s.LoadShowNotifications())
}

func TestFileStore_ExplicitFalseNotifications(t *testing.T) {
	s := newTempStore(t)
	require.NoError(t, s.SaveShowNotifications(false))
	// false must survive a reload; only a missing field defaults to true.
	assert.False(t, NewFileStore(s.path).LoadShowNotifications())
}

func TestDefaultPath_UsesHomeDir(t *testing.T) {
	orig := osUserHomeDir
	defer func() { osUserHomeDir = orig }()
	osUserHomeDir = func() (string, error) { return "/home/porter", nil }

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/porter/.config/portwatch/settings.json", path)
}

func TestMemoryStore_Defaults(t *testing.T) {
	m := NewMemoryStore()
	assert.Empty(t, m.LoadFavorites())
	assert.Equal(t, DefaultRefreshInterval, m.LoadRefreshInterval())
	assert.True(t, m.LoadShowNotifications())

	require.NoError(t, m.SaveFavorites(map[uint16]bool{22: true}))
	assert.True(t, m.LoadFavorites()[22])
}
