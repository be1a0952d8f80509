package terminate

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// gopsProc adapts *process.Process to the procHandle interface.
type gopsProc struct {
	proc *process.Process
}

func openGopsProc(ctx context.Context, pid int32) (procHandle, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &gopsProc{proc: p}, nil
}

func (g *gopsProc) IsRunning(ctx context.Context) (bool, error) {
	return g.proc.IsRunningWithContext(ctx)
}

func (g *gopsProc) Terminate(ctx context.Context) error {
	return g.proc.TerminateWithContext(ctx)
}

func (g *gopsProc) ForceKill(ctx context.Context) error {
	return g.proc.KillWithContext(ctx)
}

func (g *gopsProc) Children(ctx context.Context) ([]procHandle, error) {
	kids, err := g.proc.ChildrenWithContext(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]procHandle, 0, len(kids))
	for _, k := range kids {
		handles = append(handles, &gopsProc{proc: k})
	}
	return handles, nil
}
