package registry

import (
	"sort"
	"strings"

	"portwatch/internal/ports"
)

// Group is one process-name bucket in the grouped view.
type Group struct {
	ProcessName string
	Records     []ports.Record
	HasFavorite bool
	HasWatched  bool
}

// Snapshot returns a copy of the live port list as of the last committed
// scan, unfiltered and in scan order (ascending by port).
func (r *Registry) Snapshot() []ports.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.Record, len(r.records))
	copy(out, r.records)
	return out
}

// View applies the filter to the live list and returns the flat
// presentation order: favorites first, then ascending by port.
func (r *Registry) View(f ports.Filter) []ports.Record {
	r.mu.RLock()
	watchedSet := r.watchedSetLocked()
	var out []ports.Record
	for _, rec := range r.records {
		if f.Matches(rec, r.favorites[rec.Port], watchedSet[rec.Port]) {
			out = append(out, rec)
		}
	}
	favorites := copyFavorites(r.favorites)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := favorites[out[i].Port], favorites[out[j].Port]
		if fi != fj {
			return fi
		}
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].PID < out[j].PID
	})
	return out
}

// GroupedView buckets the filtered live list by process name. Groups are
// ordered by priority tier (favorite-containing, then watched-containing,
// then the rest) with ties broken by case-insensitive name. Ports within
// a group sort ascending.
func (r *Registry) GroupedView(f ports.Filter) []Group {
	records := r.View(f)

	r.mu.RLock()
	favorites := copyFavorites(r.favorites)
	watchedSet := r.watchedSetLocked()
	r.mu.RUnlock()

	byName := make(map[string]*Group)
	var order []string
	for _, rec := range records {
		g, ok := byName[rec.ProcessName]
		if !ok {
			g = &Group{ProcessName: rec.ProcessName}
			byName[rec.ProcessName] = g
			order = append(order, rec.ProcessName)
		}
		g.Records = append(g.Records, rec)
		if favorites[rec.Port] {
			g.HasFavorite = true
		}
		if watchedSet[rec.Port] {
			g.HasWatched = true
		}
	}

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		g := byName[name]
		sort.Slice(g.Records, func(i, j int) bool {
			if g.Records[i].Port != g.Records[j].Port {
				return g.Records[i].Port < g.Records[j].Port
			}
			return g.Records[i].PID < g.Records[j].PID
		})
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ti, tj := groupTier(groups[i]), groupTier(groups[j])
		if ti != tj {
			return ti > tj
		}
		return strings.ToLower(groups[i].ProcessName) < strings.ToLower(groups[j].ProcessName)
	})
	return groups
}

func groupTier(g Group) int {
	switch {
	case g.HasFavorite:
		return 2
	case g.HasWatched:
		return 1
	default:
		return 0
	}
}

// FavoritesView lists every favorite port sorted ascending. Favorites with
// live listeners contribute their active records; a favorite with none is
// rendered as an inactive placeholder rather than omitted.
func (r *Registry) FavoritesView() []ports.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	favoritePorts := make([]uint16, 0, len(r.favorites))
	for p := range r.favorites {
		favoritePorts = append(favoritePorts, p)
	}
	sort.Slice(favoritePorts, func(i, j int) bool { return favoritePorts[i] < favoritePorts[j] })
	return r.overlayLocked(favoritePorts)
}

// WatchedView lists every watched port the same way FavoritesView lists
// favorites: live records where they exist, placeholders where they don't.
func (r *Registry) WatchedView() []ports.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	watchedPorts := make([]uint16, 0, len(r.watched))
	seen := make(map[uint16]bool, len(r.watched))
	for _, w := range r.watched {
		if !seen[w.Port] {
			seen[w.Port] = true
			watchedPorts = append(watchedPorts, w.Port)
		}
	}
	sort.Slice(watchedPorts, func(i, j int) bool { return watchedPorts[i] < watchedPorts[j] })
	return r.overlayLocked(watchedPorts)
}

// overlayLocked maps a sorted port list onto live records, substituting an
// inactive placeholder for each port with no active listener. Callers hold
// at least a read lock.
func (r *Registry) overlayLocked(portList []uint16) []ports.Record {
	activeByPort := make(map[uint16][]ports.Record)
	for _, rec := range r.records {
		if rec.IsActive {
			activeByPort[rec.Port] = append(activeByPort[rec.Port], rec)
		}
	}

	var out []ports.Record
	for _, p := range portList {
		if live, ok := activeByPort[p]; ok {
			out = append(out, live...)
		} else {
			out = append(out, ports.NewInactiveRecord(p))
		}
	}
	return out
}
