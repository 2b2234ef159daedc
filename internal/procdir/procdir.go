// Package procdir is the point-in-time OS process directory: enumeration,
// lookup by pid and signal delivery.
package procdir

import (
	"context"
	"fmt"
	"strings"

	"github.com/monify-labs/procwatch/pkg/models"
)

// Directory enumerates and looks up live processes
type Directory interface {
	// All returns a snapshot of every live process, one entry per pid
	All(ctx context.Context) ([]models.ProcessSnapshot, error)

	// Get returns snapshots for the pids that are currently alive. Missing pids
	// are silently absent.
	Get(ctx context.Context, pids ...int32) ([]models.ProcessSnapshot, error)

	// Signal delivers kind to pid. A pid that is not alive yields errs.ErrNotFound.
	Signal(ctx context.Context, pid int32, kind SignalKind) error
}

// SignalKind is a portable signal name
type SignalKind int

const (
	SignalTerminate SignalKind = iota
	SignalKill
	SignalInterrupt
)

func (k SignalKind) String() string {
	switch k {
	case SignalTerminate:
		return "TERM"
	case SignalKill:
		return "KILL"
	case SignalInterrupt:
		return "INT"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// ParseSignal accepts TERM, KILL, INT with or without the SIG prefix
func ParseSignal(s string) (SignalKind, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG") {
	case "TERM":
		return SignalTerminate, nil
	case "KILL":
		return SignalKill, nil
	case "INT":
		return SignalInterrupt, nil
	default:
		return 0, fmt.Errorf("unknown signal %q", s)
	}
}
