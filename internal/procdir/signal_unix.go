//go:build !windows

package procdir

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/monify-labs/procwatch/internal/errs"
)

func osSignal(kind SignalKind) (syscall.Signal, error) {
	switch kind {
	case SignalTerminate:
		return unix.SIGTERM, nil
	case SignalKill:
		return unix.SIGKILL, nil
	case SignalInterrupt:
		return unix.SIGINT, nil
	default:
		return 0, fmt.Errorf("unsupported signal %s", kind)
	}
}

func sendSignal(ctx context.Context, p *process.Process, kind SignalKind) error {
	sig, err := osSignal(kind)
	if err != nil {
		return err
	}
	err = p.SendSignalWithContext(ctx, sig)
	if errors.Is(err, unix.ESRCH) {
		// exited between lookup and delivery
		return fmt.Errorf("%w: %w", errs.ErrNotFound, err)
	}
	return err
}
