package terminate

import (
	"context"
	"fmt"
	"time"

	"portwatch/internal/scan"
	"portwatch/pkg/logging"
)

const (
	// graceWindow is the canonical wait after a graceful terminate request
	// before escalating to a forced kill. Applied uniformly to every kill
	// path.
	graceWindow = 2000 * time.Millisecond

	// pollInterval is how often the process is re-checked during the grace
	// window.
	pollInterval = 50 * time.Millisecond
)

// Outcome describes how a kill request concluded.
type Outcome string

const (
	// OutcomeKilled means the process exited, gracefully or by force.
	OutcomeKilled Outcome = "Killed"
	// OutcomeAlreadyGone means the process did not exist when the request
	// was made, or vanished mid-sequence. Treated as success.
	OutcomeAlreadyGone Outcome = "AlreadyGone"
	// OutcomeFailed means the process could not be terminated, most
	// commonly for lack of privilege.
	OutcomeFailed Outcome = "Failed"
)

// Result is the value a kill request resolves to. OS-level failures are
// folded in here; Kill never panics and never returns a bare error.
type Result struct {
	PID     int32
	Outcome Outcome
	Forced  bool  // a forced kill was issued after the grace window
	Err     error // diagnostic detail when Outcome is Failed
}

// Success reports whether the process is gone. AlreadyGone counts: the
// caller asked for the process to not exist, and it doesn't.
func (r Result) Success() bool {
	return r.Outcome == OutcomeKilled || r.Outcome == OutcomeAlreadyGone
}

// Terminator performs two-phase (graceful then forced) process termination.
type Terminator interface {
	// Kill terminates a single PID using the graceful-then-forced protocol.
	Kill(ctx context.Context, pid int32) Result

	// KillAllOnPort re-scans, then kills every process actively listening
	// on the port. Returns the number of successful kills; the error is
	// non-nil only when the scan itself failed.
	KillAllOnPort(ctx context.Context, port uint16) (int, error)
}

// procHandle abstracts the per-process OS operations the protocol needs,
// so the protocol itself is testable without live processes.
type procHandle interface {
	IsRunning(ctx context.Context) (bool, error)
	Terminate(ctx context.Context) error
	ForceKill(ctx context.Context) error
	Children(ctx context.Context) ([]procHandle, error)
}

// openProcFunc opens a handle for a PID. A not-found error means the
// process is already gone.
type openProcFunc func(ctx context.Context, pid int32) (procHandle, error)

// ProcessTerminator is the default Terminator implementation.
type ProcessTerminator struct {
	openProc openProcFunc
	scanner  scan.Scanner

	grace time.Duration
	poll  time.Duration
}

// NewTerminator builds a Terminator. The scanner is used by KillAllOnPort
// to take a fresh snapshot immediately before killing, since PIDs are
// reused and any cached port-to-PID mapping goes stale.
func NewTerminator(scanner scan.Scanner) *ProcessTerminator {
	return &ProcessTerminator{
		openProc: openGopsProc,
		scanner:  scanner,
		grace:    graceWindow,
		poll:     pollInterval,
	}
}

// Kill runs the termination protocol against one PID:
//
//  1. existence check; a missing process resolves AlreadyGone
//  2. graceful terminate request (SIGTERM on POSIX; gopsutil maps the
//     equivalent on Windows)
//  3. wait up to the grace window, polling for exit
//  4. forced kill of the process tree, issued exactly once
//  5. optimistic success after the forced kill
//
// Races where the process vanishes mid-sequence resolve AlreadyGone.
func (t *ProcessTerminator) Kill(ctx context.Context, pid int32) Result {
	if pid <= 0 {
		return Result{PID: pid, Outcome: OutcomeFailed, Err: fmt.Errorf("invalid pid %d", pid)}
	}

	proc, err := t.openProc(ctx, pid)
	if err != nil {
		logging.Debug("Terminator", "pid %d already gone: %v", pid, err)
		return Result{PID: pid, Outcome: OutcomeAlreadyGone}
	}

	if running, err := proc.IsRunning(ctx); err == nil && !running {
		return Result{PID: pid, Outcome: OutcomeAlreadyGone}
	}

	if err := proc.Terminate(ctx); err != nil {
		// The graceful signal can fail for a process that just exited;
		// distinguish that from a real failure before deciding anything.
		if running, rerr := proc.IsRunning(ctx); rerr == nil && !running {
			return Result{PID: pid, Outcome: OutcomeAlreadyGone}
		}
		logging.Debug("Terminator", "graceful terminate of pid %d failed, will force: %v", pid, err)
	}

	if t.waitForExit(ctx, proc) {
		logging.Info("Terminator", "pid %d exited gracefully", pid)
		return Result{PID: pid, Outcome: OutcomeKilled}
	}

	// Grace window elapsed. Force-kill the whole tree, children first so
	// orphans don't keep the port open.
	if children, err := proc.Children(ctx); err == nil {
		for _, child := range children {
			if err := child.ForceKill(ctx); err != nil {
				logging.Debug("Terminator", "force kill of child failed: %v", err)
			}
		}
	}

	if err := proc.ForceKill(ctx); err != nil {
		if running, rerr := proc.IsRunning(ctx); rerr == nil && !running {
			return Result{PID: pid, Outcome: OutcomeAlreadyGone, Forced: true}
		}
		logging.Warn("Terminator", "force kill of pid %d failed: %v", pid, err)
		return Result{PID: pid, Outcome: OutcomeFailed, Forced: true, Err: err}
	}

	logging.Info("Terminator", "pid %d force-killed after grace window", pid)
	return Result{PID: pid, Outcome: OutcomeKilled, Forced: true}
}

// waitForExit polls the process until it exits or the grace window
// elapses. Returns true when the process exited. Context cancellation does
// not shorten the window: once a terminate was issued, the process gets
// its full grace period before any escalation.
func (t *ProcessTerminator) waitForExit(ctx context.Context, proc procHandle) bool {
	deadline := time.After(t.grace)
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		if running, err := proc.IsRunning(ctx); err != nil || !running {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

// KillAllOnPort takes a fresh scan and kills every process actively
// listening on the port. The re-scan is mandatory: any earlier snapshot's
// PID-to-port mapping is untrustworthy once time has passed.
func (t *ProcessTerminator) KillAllOnPort(ctx context.Context, port uint16) (int, error) {
	records, err := t.scanner.Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("re-scan before kill: %w", err)
	}

	killed := 0
	seen := make(map[int32]bool)
	for _, r := range records {
		if !r.IsActive || r.Port != port || seen[r.PID] {
			continue
		}
		seen[r.PID] = true
		if res := t.Kill(ctx, r.PID); res.Success() {
			killed++
		} else {
			logging.Warn("Terminator", "kill on port %d pid %d failed: %v", port, r.PID, res.Err)
		}
	}
	return killed, nil
}

var _ Terminator = (*ProcessTerminator)(nil)
