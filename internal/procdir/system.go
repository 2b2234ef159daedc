package procdir

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

// tracked keeps a gopsutil handle alive between observations so that
// Percent(0) measures CPU since the previous call
type tracked struct {
	proc       *process.Process
	createTime int64
	primed     bool // Percent(0) has been called once
}

// System is the gopsutil backed Directory
type System struct {
	mu      sync.Mutex
	handles map[int32]*tracked
	now     func() time.Time
}

// NewSystem creates a new OS process directory
func NewSystem() *System {
	return &System{
		handles: make(map[int32]*tracked),
		now:     time.Now,
	}
}

// All enumerates every live process
func (s *System) All(ctx context.Context) ([]models.ProcessSnapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int32]*tracked, len(procs))
	result := make([]models.ProcessSnapshot, 0, len(procs))
	for _, p := range procs {
		if _, dup := seen[p.Pid]; dup {
			continue
		}
		t, ok := s.handle(ctx, p)
		if !ok {
			continue
		}
		snap, ok := s.snapshot(ctx, t)
		if !ok {
			continue
		}
		seen[p.Pid] = t
		result = append(result, snap)
	}

	// Forget handles of processes that are gone
	s.handles = seen
	return result, nil
}

// Get looks up the given pids, skipping the ones that are not alive
func (s *System) Get(ctx context.Context, pids ...int32) ([]models.ProcessSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.ProcessSnapshot, 0, len(pids))
	for _, pid := range pids {
		t, ok := s.lookup(ctx, pid)
		if !ok {
			delete(s.handles, pid)
			continue
		}
		snap, ok := s.snapshot(ctx, t)
		if !ok {
			delete(s.handles, pid)
			continue
		}
		result = append(result, snap)
	}
	return result, nil
}

// Signal sends kind to pid
func (s *System) Signal(ctx context.Context, pid int32, kind SignalKind) error {
	s.mu.Lock()
	t, ok := s.lookup(ctx, pid)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("signal %s to pid %d: %w", kind, pid, errs.ErrNotFound)
	}

	if err := sendSignal(ctx, t.proc, kind); err != nil {
		return fmt.Errorf("signal %s to pid %d: %w", kind, pid, err)
	}
	return nil
}

// handle returns the cached handle for p, replacing it when the pid was reused
func (s *System) handle(ctx context.Context, p *process.Process) (*tracked, bool) {
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return nil, false
	}
	if t, ok := s.handles[p.Pid]; ok && t.createTime == created {
		return t, true
	}
	return &tracked{proc: p, createTime: created}, true
}

// lookup resolves a single pid, caller holds s.mu
func (s *System) lookup(ctx context.Context, pid int32) (*tracked, bool) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, false
	}

	t, ok := s.handle(ctx, p)
	if !ok {
		return nil, false
	}
	s.handles[pid] = t
	return t, true
}

// snapshot reads one process. Fields the caller may not be allowed to read
// (I/O counters, user name of other users' processes) degrade to zero values.
func (s *System) snapshot(ctx context.Context, t *tracked) (models.ProcessSnapshot, bool) {
	p := t.proc

	name, err := p.NameWithContext(ctx)
	if err != nil {
		// Process exited between enumeration and read
		return models.ProcessSnapshot{}, false
	}

	snap := models.ProcessSnapshot{
		PID:       p.Pid,
		Name:      name,
		StartTime: time.UnixMilli(t.createTime),
		SampledAt: s.now(),
	}

	// Percent(0) returns 0 on the first call for a handle; fall back to the
	// lifetime average until a second observation exists
	pct, err := p.PercentWithContext(ctx, 0)
	if err == nil && t.primed {
		snap.CPUPercent = pct
	} else if avg, err := p.CPUPercentWithContext(ctx); err == nil {
		snap.CPUPercent = avg
	}
	t.primed = err == nil

	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		snap.Memory = mem.RSS
		snap.Virtual = mem.VMS
	}
	if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
		snap.ReadBytes = io.ReadBytes
		snap.WriteBytes = io.WriteBytes
	}
	if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
		snap.State = status[0]
	}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		snap.ParentPID = ppid
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		snap.User = user
	}

	return snap, true
}
