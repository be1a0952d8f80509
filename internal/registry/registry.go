package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"portwatch/internal/notify"
	"portwatch/internal/ports"
	"portwatch/internal/scan"
	"portwatch/internal/settings"
	"portwatch/internal/terminate"
	"portwatch/pkg/logging"
)

const subsystem = "Registry"

// Deps carries the registry's collaborators. Scanner and Store are
// required; a nil Notifier degrades to a no-op and a nil Bus disables
// snapshot events.
type Deps struct {
	Scanner    scan.Scanner
	Terminator terminate.Terminator
	Store      settings.Store
	Notifier   notify.Notifier
	Bus        notify.Bus
}

// Registry owns the in-memory port inventory: the live snapshot, the
// favorites set, the watched-port list, and the liveness history used to
// detect start/stop transitions between scans. It is the single writer for
// all of that state; readers get copies.
type Registry struct {
	deps Deps

	mu                sync.RWMutex
	records           []ports.Record
	favorites         map[uint16]bool
	watched           []ports.WatchedPort
	liveness          map[uint16]bool
	lastScan          time.Time
	lastErr           error
	refreshInterval   time.Duration
	showNotifications bool

	// refreshing guards the at-most-one-refresh-in-flight invariant.
	refreshing atomic.Bool

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// transition is a pending watch notification, evaluated under the write
// lock and dispatched after the snapshot is committed.
type transition struct {
	port        uint16
	processName string
	started     bool
}

// New builds a registry and hydrates favorites, watched ports, and
// preferences from the settings store.
func New(deps Deps) *Registry {
	if deps.Notifier == nil {
		deps.Notifier = notify.NopNotifier{}
	}
	r := &Registry{
		deps:              deps,
		favorites:         deps.Store.LoadFavorites(),
		watched:           deps.Store.LoadWatched(),
		liveness:          make(map[uint16]bool),
		refreshInterval:   time.Duration(deps.Store.LoadRefreshInterval()) * time.Second,
		showNotifications: deps.Store.LoadShowNotifications(),
	}
	if r.favorites == nil {
		r.favorites = make(map[uint16]bool)
	}
	return r
}

// Refresh runs one scan cycle. Returns false without doing anything when a
// refresh is already in flight: overlapping calls coalesce instead of
// queueing. On success the live list is swapped atomically, the liveness
// baseline is recomputed for every watched port, and watch-transition
// notifications are dispatched, all before the in-flight flag clears.
func (r *Registry) Refresh(ctx context.Context) bool {
	if !r.refreshing.CompareAndSwap(false, true) {
		logging.Debug(subsystem, "refresh already in flight, coalescing")
		return false
	}
	defer r.refreshing.Store(false)

	records, err := r.deps.Scanner.Scan(ctx)
	if err != nil {
		// A failed enumeration keeps the previous snapshot: transitions
		// computed against a spuriously empty list would fire phantom
		// "stopped" notifications. The next cycle self-heals.
		logging.Warn(subsystem, "scan failed, keeping previous snapshot: %v", err)
		r.mu.Lock()
		r.lastErr = err
		count := len(r.records)
		r.mu.Unlock()
		// The cycle still concludes for subscribers: without a snapshot
		// event a UI waiting on the refresh would spin forever.
		r.publishSnapshot(count)
		r.publishScanFailure(err)
		return true
	}
	if ctx.Err() != nil {
		// Cancelled mid-scan: abandon the results without corrupting state.
		return true
	}

	pending := r.commit(records)
	r.dispatch(pending)
	r.publishSnapshot(len(records))
	return true
}

// commit swaps in the new snapshot and evaluates watch transitions against
// the pre-scan baseline, all under one write lock so no reader observes a
// half-updated registry.
func (r *Registry) commit(records []ports.Record) []transition {
	activeOn := make(map[uint16]string) // port -> process name of one active listener
	for _, rec := range records {
		if rec.IsActive {
			if _, ok := activeOn[rec.Port]; !ok {
				activeOn[rec.Port] = rec.ProcessName
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []transition
	for _, w := range r.watched {
		name, nowActive := activeOn[w.Port]
		wasActive, hasBaseline := r.liveness[w.Port]

		// A watch with no baseline yet (hydrated from the store before any
		// scan) establishes one silently; transitions are only evaluated
		// against a recorded prior state.
		if hasBaseline {
			if nowActive && !wasActive && w.NotifyOnStart {
				pending = append(pending, transition{port: w.Port, processName: name, started: true})
			}
			if !nowActive && wasActive && w.NotifyOnStop {
				pending = append(pending, transition{port: w.Port, started: false})
			}
		}

		// The baseline is updated for every watched port on every scan,
		// transition or not; otherwise the next comparison is wrong.
		r.liveness[w.Port] = nowActive
	}

	r.records = records
	r.lastScan = time.Now()
	r.lastErr = nil

	if !r.showNotifications {
		return nil
	}
	return pending
}

// dispatch fires pending notifications. Runs after commit and before the
// in-flight flag clears, so two refreshes can never interleave their
// notification evaluation.
func (r *Registry) dispatch(pending []transition) {
	for _, tr := range pending {
		if tr.started {
			logging.Info(subsystem, "watched port %d started (%s)", tr.port, tr.processName)
			r.deps.Notifier.NotifyPortStarted(tr.port, tr.processName)
		} else {
			logging.Info(subsystem, "watched port %d stopped", tr.port)
			r.deps.Notifier.NotifyPortStopped(tr.port)
		}
	}
}

func (r *Registry) publishSnapshot(count int) {
	if r.deps.Bus == nil {
		return
	}
	ev := notify.NewEvent(notify.EventSnapshotUpdated)
	ev.RecordCount = count
	r.deps.Bus.Publish(ev)
}

func (r *Registry) publishScanFailure(scanErr error) {
	if r.deps.Bus == nil {
		return
	}
	ev := notify.NewEvent(notify.EventNotice)
	ev.Title = "scan failed"
	ev.Message = scanErr.Error()
	r.deps.Bus.Publish(ev)
}

// Start launches the auto-refresh loop. An immediate refresh runs first,
// then one per interval. Calling Start while a loop is running is a no-op;
// timers never stack.
func (r *Registry) Start(ctx context.Context) {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	if r.loopDone != nil {
		return
	}
	r.startLoopLocked(ctx)
}

func (r *Registry) startLoopLocked(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.loopCancel = cancel
	r.loopDone = done

	interval := r.RefreshInterval()
	logging.Info(subsystem, "auto-refresh started, interval %s", interval)

	go func() {
		defer close(done)
		r.Refresh(loopCtx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				r.Refresh(loopCtx)
			}
		}
	}()
}

// Stop cancels the auto-refresh loop and waits for it to wind down. An
// in-flight scan is abandoned without corrupting state.
func (r *Registry) Stop() {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	r.stopLoopLocked()
}

func (r *Registry) stopLoopLocked() {
	if r.loopCancel == nil {
		return
	}
	r.loopCancel()
	<-r.loopDone
	r.loopCancel = nil
	r.loopDone = nil
	logging.Info(subsystem, "auto-refresh stopped")
}

// Running reports whether the auto-refresh loop is active.
func (r *Registry) Running() bool {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	return r.loopDone != nil
}

// RefreshInterval returns the current auto-refresh period.
func (r *Registry) RefreshInterval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshInterval
}

// SetRefreshInterval updates and persists the auto-refresh period. If the
// loop is running it restarts with the new interval; the old timer is torn
// down first so timers never stack.
func (r *Registry) SetRefreshInterval(ctx context.Context, seconds int) {
	if seconds < 1 {
		seconds = 1
	}
	r.mu.Lock()
	r.refreshInterval = time.Duration(seconds) * time.Second
	r.mu.Unlock()

	if err := r.deps.Store.SaveRefreshInterval(seconds); err != nil {
		logging.Warn(subsystem, "persisting refresh interval failed: %v", err)
	}

	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	if r.loopDone != nil {
		r.stopLoopLocked()
		r.startLoopLocked(ctx)
	}
}

// ShowNotifications reports whether watch notifications are enabled.
func (r *Registry) ShowNotifications() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.showNotifications
}

// SetShowNotifications updates and persists the notifications toggle.
func (r *Registry) SetShowNotifications(show bool) {
	r.mu.Lock()
	r.showNotifications = show
	r.mu.Unlock()
	if err := r.deps.Store.SaveShowNotifications(show); err != nil {
		logging.Warn(subsystem, "persisting notifications toggle failed: %v", err)
	}
}

// ToggleFavorite flips a port's favorite status, persists the set, and
// returns the new status.
func (r *Registry) ToggleFavorite(port uint16) bool {
	r.mu.Lock()
	if r.favorites[port] {
		delete(r.favorites, port)
	} else {
		r.favorites[port] = true
	}
	nowFavorite := r.favorites[port]
	snapshot := copyFavorites(r.favorites)
	r.mu.Unlock()

	if err := r.deps.Store.SaveFavorites(snapshot); err != nil {
		logging.Warn(subsystem, "persisting favorites failed: %v", err)
	}
	return nowFavorite
}

// IsFavorite reports whether a port is in the favorites set.
func (r *Registry) IsFavorite(port uint16) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.favorites[port]
}

// Favorites returns the favorite ports sorted ascending.
func (r *Registry) Favorites() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint16, 0, len(r.favorites))
	for p := range r.favorites {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddWatch registers a watch on a port with both transitions enabled. A
// port already being watched is not added twice; the existing entry is
// returned with ok=false.
func (r *Registry) AddWatch(port uint16) (ports.WatchedPort, bool) {
	r.mu.Lock()
	for _, w := range r.watched {
		if w.Port == port {
			r.mu.Unlock()
			return w, false
		}
	}
	w := ports.NewWatchedPort(port)
	r.watched = append(r.watched, w)
	// Seed the liveness baseline from the current snapshot: adding a watch
	// on an already-active port must not fire "started" on the next scan.
	// Before the first scan there is no snapshot to seed from; commit
	// establishes the baseline silently instead.
	if !r.lastScan.IsZero() {
		r.liveness[port] = r.activeOnPortLocked(port)
	}
	snapshot := copyWatched(r.watched)
	r.mu.Unlock()

	r.persistWatched(snapshot)
	return w, true
}

// RemoveWatch drops the watch entry for a port, along with its liveness
// baseline so a future re-add starts fresh.
func (r *Registry) RemoveWatch(port uint16) bool {
	r.mu.Lock()
	idx := -1
	for i, w := range r.watched {
		if w.Port == port {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.watched = append(r.watched[:idx], r.watched[idx+1:]...)
	delete(r.liveness, port)
	snapshot := copyWatched(r.watched)
	r.mu.Unlock()

	r.persistWatched(snapshot)
	return true
}

// IsWatched reports whether a port has a watch entry.
func (r *Registry) IsWatched(port uint16) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watchedSetLocked()[port]
}

// SetWatchNotify updates the notification flags on an existing watch.
func (r *Registry) SetWatchNotify(port uint16, onStart, onStop bool) bool {
	r.mu.Lock()
	found := false
	for i := range r.watched {
		if r.watched[i].Port == port {
			r.watched[i].NotifyOnStart = onStart
			r.watched[i].NotifyOnStop = onStop
			found = true
			break
		}
	}
	var snapshot []ports.WatchedPort
	if found {
		snapshot = copyWatched(r.watched)
	}
	r.mu.Unlock()

	if found {
		r.persistWatched(snapshot)
	}
	return found
}

// Watched returns a copy of the watched-port list.
func (r *Registry) Watched() []ports.WatchedPort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyWatched(r.watched)
}

func (r *Registry) persistWatched(snapshot []ports.WatchedPort) {
	if err := r.deps.Store.SaveWatched(snapshot); err != nil {
		logging.Warn(subsystem, "persisting watched ports failed: %v", err)
	}
}

// Kill terminates one PID via the graceful-then-forced protocol and
// publishes the outcome. Blocks up to the grace window; run it off the UI
// loop.
func (r *Registry) Kill(ctx context.Context, pid int32, port uint16) terminate.Result {
	res := r.deps.Terminator.Kill(ctx, pid)
	r.publishKillResult(pid, port, res.Success())
	return res
}

// KillAllOnPort re-scans and kills every process listening on the port.
func (r *Registry) KillAllOnPort(ctx context.Context, port uint16) (int, error) {
	killed, err := r.deps.Terminator.KillAllOnPort(ctx, port)
	r.publishKillResult(0, port, err == nil && killed > 0)
	return killed, err
}

func (r *Registry) publishKillResult(pid int32, port uint16, success bool) {
	if r.deps.Bus == nil {
		return
	}
	ev := notify.NewEvent(notify.EventKillResult)
	ev.PID = pid
	ev.Port = port
	ev.Success = success
	r.deps.Bus.Publish(ev)
}

// LastScan returns when the last successful scan was committed.
func (r *Registry) LastScan() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastScan
}

// LastError returns the most recent scan error, or nil after a successful
// cycle.
func (r *Registry) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Registry) activeOnPortLocked(port uint16) bool {
	for _, rec := range r.records {
		if rec.Port == port && rec.IsActive {
			return true
		}
	}
	return false
}

func (r *Registry) watchedSetLocked() map[uint16]bool {
	set := make(map[uint16]bool, len(r.watched))
	for _, w := range r.watched {
		set[w.Port] = true
	}
	return set
}

func copyFavorites(src map[uint16]bool) map[uint16]bool {
	out := make(map[uint16]bool, len(src))
	for p := range src {
		out[p] = true
	}
	return out
}

func copyWatched(src []ports.WatchedPort) []ports.WatchedPort {
	out := make([]ports.WatchedPort, len(src))
	copy(out, src)
	return out
}
