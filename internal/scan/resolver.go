package scan

import (
	"context"
	"os/user"

	"github.com/shirou/gopsutil/v4/process"

	"portwatch/pkg/logging"
)

// UnknownProcessName is the placeholder used when a PID's name cannot be
// resolved at all.
const UnknownProcessName = "Unknown"

// ProcessMeta holds the resolved metadata for one PID. Fields degrade
// independently: a failed lookup yields a placeholder for that field only.
type ProcessMeta struct {
	Name    string
	Command string
	User    string
}

// Resolver turns a PID into process metadata. Resolution never fails as a
// whole; each field falls back on its own.
type Resolver interface {
	Resolve(ctx context.Context, pid int32) ProcessMeta
}

// ProcessResolver resolves PIDs via the OS process table.
type ProcessResolver struct {
	// currentUser is injectable for tests; defaults to the session user.
	currentUser func() string
}

// NewProcessResolver builds the default resolver.
func NewProcessResolver() *ProcessResolver {
	return &ProcessResolver{currentUser: sessionUser}
}

func sessionUser() string {
	u, err := user.Current()
	if err != nil {
		return UnknownProcessName
	}
	return u.Username
}

// Resolve looks up name, command line, and owning user for a PID. Each of
// the three sub-lookups has its own fallback chain:
//   - name: placeholder "Unknown"
//   - command: executable path, then process name
//   - user: the current session user (the common case when access to
//     another user's process is denied)
func (r *ProcessResolver) Resolve(ctx context.Context, pid int32) ProcessMeta {
	meta := ProcessMeta{Name: UnknownProcessName, User: r.currentUser()}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		logging.Debug("Resolver", "pid %d not found: %v", pid, err)
		meta.Command = meta.Name
		return meta
	}

	if name, err := proc.NameWithContext(ctx); err == nil && name != "" {
		meta.Name = name
	} else {
		logging.Debug("Resolver", "name lookup failed for pid %d: %v", pid, err)
	}

	if cmdline, err := proc.CmdlineWithContext(ctx); err == nil && cmdline != "" {
		meta.Command = cmdline
	} else if exe, err := proc.ExeWithContext(ctx); err == nil && exe != "" {
		meta.Command = exe
	} else {
		meta.Command = meta.Name
	}

	if username, err := proc.UsernameWithContext(ctx); err == nil && username != "" {
		meta.User = username
	}

	return meta
}
