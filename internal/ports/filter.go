package ports

import (
	"strings"

	"portwatch/internal/classify"
)

// Filter narrows the registry's live list down to what the UI is asking
// for. The zero value matches everything. Filters are ephemeral and owned
// by the caller; the query layer only reads them.
type Filter struct {
	SearchText        string
	MinPort           uint16
	MaxPort           uint16 // 0 means no upper bound
	Categories        map[classify.Category]bool
	ShowOnlyFavorites bool
	ShowOnlyWatched   bool
}

// Matches reports whether a record passes the filter. Favorite and watched
// membership are supplied by the registry since the record itself does not
// carry them.
func (f Filter) Matches(r Record, isFavorite, isWatched bool) bool {
	if f.ShowOnlyFavorites && !isFavorite {
		return false
	}
	if f.ShowOnlyWatched && !isWatched {
		return false
	}
	if f.MinPort != 0 && r.Port < f.MinPort {
		return false
	}
	if f.MaxPort != 0 && r.Port > f.MaxPort {
		return false
	}
	if len(f.Categories) > 0 && !f.Categories[r.Category] {
		return false
	}
	if f.SearchText != "" {
		needle := strings.ToLower(strings.TrimSpace(f.SearchText))
		if needle != "" {
			haystack := strings.ToLower(r.ProcessName) + " " +
				strings.ToLower(r.Command) + " " + r.DisplayPort()
			if !strings.Contains(haystack, needle) {
				return false
			}
		}
	}
	return true
}
