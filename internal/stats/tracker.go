package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

type series struct {
	name      string
	startTime time.Time
	window    *Window
	lastRead  uint64
	lastWrite uint64
	primed    bool
}

// Tracker holds one Window per pid. A single writer folds snapshots in with
// Observe while any number of readers query metrics.
type Tracker struct {
	mu       sync.RWMutex
	capacity int
	series   map[int32]*series
}

// NewTracker creates a tracker whose windows retain capacity samples
func NewTracker(capacity int) *Tracker {
	if capacity < 1 {
		capacity = 1
	}
	return &Tracker{
		capacity: capacity,
		series:   make(map[int32]*series),
	}
}

// Observe appends one sample per snapshot. Disk channels record the bytes
// moved since the pid's previous snapshot; the first observation and counter
// resets record 0. A pid whose start time changed is treated as a new process.
func (t *Tracker) Observe(snaps ...models.ProcessSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, snap := range snaps {
		s, ok := t.series[snap.PID]
		if ok && !snap.StartTime.IsZero() && !s.startTime.IsZero() && !snap.StartTime.Equal(s.startTime) {
			ok = false
		}
		if !ok {
			s = &series{
				startTime: snap.StartTime,
				window:    NewWindow(t.capacity),
			}
			t.series[snap.PID] = s
		}
		s.name = snap.Name

		var read, write uint64
		if s.primed {
			read = deltaU64(snap.ReadBytes, s.lastRead)
			write = deltaU64(snap.WriteBytes, s.lastWrite)
		}
		s.lastRead, s.lastWrite, s.primed = snap.ReadBytes, snap.WriteBytes, true

		at := snap.SampledAt
		if at.IsZero() {
			at = time.Now()
		}
		s.window.AddSampleAt(at, snap.CPUPercent, float64(snap.Memory), float64(read), float64(write))
	}
}

// Metrics returns statistics for one channel of pid
func (t *Tracker) Metrics(pid int32, ch models.Channel) (models.StatisticalMetrics, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.series[pid]
	if !ok {
		return models.StatisticalMetrics{}, fmt.Errorf("no history for pid %d: %w", pid, errs.ErrNotFound)
	}
	return s.window.Metrics(ch), nil
}

// Values returns the retained values of one channel of pid, oldest first
func (t *Tracker) Values(pid int32, ch models.Channel) ([]float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.series[pid]
	if !ok {
		return nil, fmt.Errorf("no history for pid %d: %w", pid, errs.ErrNotFound)
	}
	return s.window.Values(ch), nil
}

// Name returns the last observed process name of pid
func (t *Tracker) Name(pid int32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.series[pid]; ok {
		return s.name
	}
	return ""
}

// TimeWindow returns the span of pid's retained history
func (t *Tracker) TimeWindow(pid int32) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.series[pid]
	if !ok {
		return 0, false
	}
	return s.window.TimeWindow()
}

// Pids returns the tracked pids in ascending order
func (t *Tracker) Pids() []int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pids := make([]int32, 0, len(t.series))
	for pid := range t.series {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// Len returns the number of tracked pids
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.series)
}

// Forget drops the history of pid
func (t *Tracker) Forget(pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.series, pid)
}

// Retain drops the history of every pid not in alive and returns how many
// were dropped
func (t *Tracker) Retain(alive []int32) int {
	keep := make(map[int32]struct{}, len(alive))
	for _, pid := range alive {
		keep[pid] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for pid := range t.series {
		if _, ok := keep[pid]; !ok {
			delete(t.series, pid)
			dropped++
		}
	}
	return dropped
}

func deltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter reset
	return 0
}
