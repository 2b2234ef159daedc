// Package procdirtest provides an in-memory procdir.Directory for tests.
package procdirtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/pkg/models"
)

// SentSignal records one Signal call that succeeded
type SentSignal struct {
	PID  int32
	Kind procdir.SignalKind
}

// Fake is a scriptable process table. Processes can be scheduled to exit
// after a number of lookups, and a hook can mutate the table before every
// Get or All call.
type Fake struct {
	mu        sync.Mutex
	order     []int32
	procs     map[int32]models.ProcessSnapshot
	remaining map[int32]int // lookups left before the pid vanishes
	getCalls  int
	allCalls  int
	signals   []SentSignal
	signalErr error
	allErr    error
	onCall    func(f *Fake, call int)
	killExits bool
	clock     time.Time
}

// NewFake creates a fake holding snaps in enumeration order
func NewFake(snaps ...models.ProcessSnapshot) *Fake {
	f := &Fake{
		procs:     make(map[int32]models.ProcessSnapshot),
		remaining: make(map[int32]int),
		killExits: true,
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, s := range snaps {
		f.Set(s)
	}
	return f
}

// Set inserts or replaces a process, keeping its enumeration position
func (f *Fake) Set(s models.ProcessSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(s)
}

func (f *Fake) setLocked(s models.ProcessSnapshot) {
	if _, ok := f.procs[s.PID]; !ok {
		f.order = append(f.order, s.PID)
	}
	f.procs[s.PID] = s
}

// Remove makes pid disappear
func (f *Fake) Remove(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(pid)
}

func (f *Fake) removeLocked(pid int32) {
	delete(f.procs, pid)
	delete(f.remaining, pid)
	for i, p := range f.order {
		if p == pid {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// ExitAfter makes pid vanish once it has been returned by n lookups
func (f *Fake) ExitAfter(pid int32, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining[pid] = n
}

// OnCall registers a hook run (without the lock held) before every Get or All
// call; call counts Get and All calls together starting at 1
func (f *Fake) OnCall(hook func(f *Fake, call int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCall = hook
}

// FailSignals makes every Signal call return err
func (f *Fake) FailSignals(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signalErr = err
}

// FailAll makes every All call return err
func (f *Fake) FailAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allErr = err
}

// KeepKilled leaves processes alive after a successful KILL signal
func (f *Fake) KeepKilled() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killExits = false
}

// Signals returns the signals delivered so far
func (f *Fake) Signals() []SentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentSignal(nil), f.signals...)
}

// GetCalls returns how many times Get was called
func (f *Fake) GetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// AllCalls returns how many times All was called
func (f *Fake) AllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allCalls
}

func (f *Fake) runHook() {
	f.mu.Lock()
	hook := f.onCall
	call := f.getCalls + f.allCalls
	f.mu.Unlock()
	if hook != nil {
		hook(f, call)
	}
}

// observe returns the stamped snapshot of pid and counts down its lifetime;
// caller holds f.mu
func (f *Fake) observe(pid int32) (models.ProcessSnapshot, bool) {
	s, ok := f.procs[pid]
	if !ok {
		return models.ProcessSnapshot{}, false
	}
	if n, limited := f.remaining[pid]; limited {
		if n <= 0 {
			f.removeLocked(pid)
			return models.ProcessSnapshot{}, false
		}
		f.remaining[pid] = n - 1
	}
	if s.SampledAt.IsZero() {
		f.clock = f.clock.Add(time.Second)
		s.SampledAt = f.clock
	}
	return s, true
}

// All returns every live process in insertion order
func (f *Fake) All(ctx context.Context) ([]models.ProcessSnapshot, error) {
	f.mu.Lock()
	f.allCalls++
	f.mu.Unlock()
	f.runHook()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	order := append([]int32(nil), f.order...)
	result := make([]models.ProcessSnapshot, 0, len(order))
	for _, pid := range order {
		if s, ok := f.observe(pid); ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// Get returns the live subset of pids
func (f *Fake) Get(ctx context.Context, pids ...int32) ([]models.ProcessSnapshot, error) {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()
	f.runHook()

	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]models.ProcessSnapshot, 0, len(pids))
	for _, pid := range pids {
		if s, ok := f.observe(pid); ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// Signal records the signal, or fails with the configured error
func (f *Fake) Signal(ctx context.Context, pid int32, kind procdir.SignalKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.procs[pid]; !ok {
		return fmt.Errorf("signal %s to pid %d: %w", kind, pid, errs.ErrNotFound)
	}
	if f.signalErr != nil {
		return fmt.Errorf("signal %s to pid %d: %w", kind, pid, f.signalErr)
	}
	f.signals = append(f.signals, SentSignal{PID: pid, Kind: kind})
	if kind == procdir.SignalKill && f.killExits {
		f.removeLocked(pid)
	}
	return nil
}

var _ procdir.Directory = (*Fake)(nil)
