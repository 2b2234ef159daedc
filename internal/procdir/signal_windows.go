//go:build windows

package procdir

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Windows has no signal delivery; KILL and TERM map to TerminateProcess
func sendSignal(ctx context.Context, p *process.Process, kind SignalKind) error {
	switch kind {
	case SignalKill:
		return p.KillWithContext(ctx)
	case SignalTerminate, SignalInterrupt:
		return p.TerminateWithContext(ctx)
	default:
		return fmt.Errorf("unsupported signal %s", kind)
	}
}
