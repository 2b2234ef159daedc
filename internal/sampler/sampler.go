package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/pkg/models"
)

// Sampler fetches process snapshots from a process directory
type Sampler struct {
	dir procdir.Directory
	log logrus.FieldLogger
	now func() time.Time
}

// New creates a new sampler over dir
func New(dir procdir.Directory, log logrus.FieldLogger) *Sampler {
	return &Sampler{
		dir: dir,
		log: log,
		now: time.Now,
	}
}

// Directory returns the underlying process directory
func (s *Sampler) Directory() procdir.Directory {
	return s.dir
}

// SampleOnce takes a single snapshot of pid
func (s *Sampler) SampleOnce(ctx context.Context, pid int32) (models.ProcessSnapshot, error) {
	snap, ok, err := s.fetch(ctx, pid)
	if err != nil {
		return models.ProcessSnapshot{}, err
	}
	if !ok {
		return models.ProcessSnapshot{}, fmt.Errorf("pid %d: %w", pid, errs.ErrNotFound)
	}
	return snap, nil
}

// SampleMany snapshots the live subset of pids. It fails when pids is empty
// or when none of them is alive.
func (s *Sampler) SampleMany(ctx context.Context, pids []int32) ([]models.ProcessSnapshot, error) {
	if len(pids) == 0 {
		return nil, fmt.Errorf("%w: no pids provided", errs.ErrValidation)
	}

	snaps, err := s.dir.Get(ctx, pids...)
	if err != nil {
		return nil, fmt.Errorf("failed to read processes: %w", err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("pids %v: %w", pids, errs.ErrNotFound)
	}
	return snaps, nil
}

// SampleAll enumerates every live process into a new snapshot set
func (s *Sampler) SampleAll(ctx context.Context) (*models.SnapshotSet, error) {
	snaps, err := s.dir.All(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SnapshotSet{
		ID:        uuid.New().String(),
		TakenAt:   s.now(),
		Snapshots: snaps,
	}, nil
}

// SampleSeries takes up to iterations snapshots of pid, interval apart.
//
// A process that is absent on the first tick yields errs.ErrNotFound right
// away. A process that exits later ends the series early and the partial
// sequence is returned without error. Cancelling ctx returns the partial
// sequence together with errs.ErrCancelled.
func (s *Sampler) SampleSeries(ctx context.Context, pid int32, iterations int, interval time.Duration) ([]models.ProcessSnapshot, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be > 0", errs.ErrValidation)
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must be >= 0", errs.ErrValidation)
	}

	samples := make([]models.ProcessSnapshot, 0, iterations)
	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return samples, fmt.Errorf("sample series for pid %d: %w", pid, errs.ErrCancelled)
		}

		snap, ok, err := s.fetch(ctx, pid)
		if err != nil {
			return samples, err
		}
		if !ok {
			if i == 0 {
				return nil, fmt.Errorf("pid %d: %w", pid, errs.ErrNotFound)
			}
			s.log.WithFields(logrus.Fields{"pid": pid, "samples": len(samples)}).
				Debug("Process exited during sampling")
			return samples, nil
		}
		samples = append(samples, snap)

		// No sleep after the last sample
		if i < iterations-1 && !Wait(ctx, interval) {
			return samples, fmt.Errorf("sample series for pid %d: %w", pid, errs.ErrCancelled)
		}
	}

	return samples, nil
}

// MonitorLive samples pid every interval and hands each snapshot to onSample
// until the process exits (StopProcessExited) or ctx is done (StopCancelled).
// Both are normal endings and come back with a nil error.
//
// A process absent on the first tick yields errs.ErrNotFound. An error
// returned by onSample aborts the loop and is returned as is.
func (s *Sampler) MonitorLive(ctx context.Context, pid int32, interval time.Duration, onSample func(models.ProcessSnapshot) error) (models.StopReason, error) {
	if interval < 0 {
		return "", fmt.Errorf("%w: interval must be >= 0", errs.ErrValidation)
	}

	log := s.log.WithFields(logrus.Fields{"pid": pid, "interval": interval})
	ticks := 0
	for {
		if ctx.Err() != nil {
			log.WithField("ticks", ticks).Debug("Live monitoring cancelled")
			return models.StopCancelled, nil
		}

		snap, ok, err := s.fetch(ctx, pid)
		if err != nil {
			if ctx.Err() != nil {
				return models.StopCancelled, nil
			}
			return "", err
		}
		if !ok {
			if ticks == 0 {
				return "", fmt.Errorf("pid %d: %w", pid, errs.ErrNotFound)
			}
			log.WithField("ticks", ticks).Debug("Live monitoring ended: process exited")
			return models.StopProcessExited, nil
		}
		ticks++

		if err := onSample(snap); err != nil {
			return "", err
		}

		if !Wait(ctx, interval) {
			log.WithField("ticks", ticks).Debug("Live monitoring cancelled")
			return models.StopCancelled, nil
		}
	}
}

// fetch looks pid up, reporting whether it is alive
func (s *Sampler) fetch(ctx context.Context, pid int32) (models.ProcessSnapshot, bool, error) {
	snaps, err := s.dir.Get(ctx, pid)
	if err != nil {
		return models.ProcessSnapshot{}, false, fmt.Errorf("failed to read pid %d: %w", pid, err)
	}
	for _, snap := range snaps {
		if snap.PID == pid {
			return snap, true, nil
		}
	}
	// reads interrupted by ctx look like an exited process
	if ctx.Err() != nil {
		return models.ProcessSnapshot{}, false, fmt.Errorf("read pid %d: %w", pid, errs.ErrCancelled)
	}
	return models.ProcessSnapshot{}, false, nil
}

// Wait sleeps for d or until ctx is done, reporting whether the full
// duration elapsed. A zero d only checks ctx.
func Wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ReasonErr maps a loop's stop reason to its sentinel error for callers that
// prefer errors.Is checks
func ReasonErr(reason models.StopReason) error {
	switch reason {
	case models.StopProcessExited:
		return errs.ErrProcessEnded
	case models.StopCancelled:
		return errs.ErrCancelled
	default:
		return nil
	}
}
