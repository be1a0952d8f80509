package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"portwatch/internal/classify"
)

func TestNewRecord(t *testing.T) {
	r := NewRecord(8080, 1234, "nginx", "127.0.0.1", "www", "nginx -g daemon off;")

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, uint16(8080), r.Port)
	assert.Equal(t, int32(1234), r.PID)
	assert.True(t, r.IsActive)
	assert.Equal(t, classify.CategoryWebServer, r.Category)
	assert.Equal(t, Key{Port: 8080, PID: 1234}, r.Key())
	assert.Equal(t, "8080", r.DisplayPort())
}

func TestNewInactiveRecord(t *testing.T) {
	r := NewInactiveRecord(9999)

	assert.Equal(t, uint16(9999), r.Port)
	assert.Equal(t, int32(0), r.PID)
	assert.Equal(t, NotRunningName, r.ProcessName)
	assert.False(t, r.IsActive)
}

func TestRecordIDsAreUnique(t *testing.T) {
	a := NewRecord(80, 1, "nginx", "", "", "")
	b := NewRecord(80, 1, "nginx", "", "", "")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Key(), b.Key())
}

func TestFilter_Matches(t *testing.T) {
	rec := NewRecord(3000, 42, "node", "0.0.0.0", "dev", "node server.js")

	tests := []struct {
		name       string
		filter     Filter
		isFavorite bool
		isWatched  bool
		want       bool
	}{
		{"zero filter matches", Filter{}, false, false, true},
		{"search by name", Filter{SearchText: "NODE"}, false, false, true},
		{"search by port", Filter{SearchText: "3000"}, false, false, true},
		{"search by command", Filter{SearchText: "server.js"}, false, false, true},
		{"search miss", Filter{SearchText: "nginx"}, false, false, false},
		{"min port excludes", Filter{MinPort: 3001}, false, false, false},
		{"max port excludes", Filter{MaxPort: 2999}, false, false, false},
		{"port range includes", Filter{MinPort: 3000, MaxPort: 3000}, false, false, true},
		{"category match", Filter{Categories: map[classify.Category]bool{classify.CategoryDevelopment: true}}, false, false, true},
		{"category miss", Filter{Categories: map[classify.Category]bool{classify.CategoryDatabase: true}}, false, false, false},
		{"favorites only, not favorite", Filter{ShowOnlyFavorites: true}, false, false, false},
		{"favorites only, favorite", Filter{ShowOnlyFavorites: true}, true, false, true},
		{"watched only, not watched", Filter{ShowOnlyWatched: true}, false, false, false},
		{"watched only, watched", Filter{ShowOnlyWatched: true}, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(rec, tt.isFavorite, tt.isWatched))
		})
	}
}

func TestNewWatchedPort(t *testing.T) {
	w := NewWatchedPort(5432)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, uint16(5432), w.Port)
	assert.True(t, w.NotifyOnStart)
	assert.True(t, w.NotifyOnStop)
}
