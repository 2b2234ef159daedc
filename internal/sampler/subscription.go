package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/monify-labs/procwatch/pkg/models"
)

// Subscription is a live stream of snapshots for one pid. Receive from C
// until it is closed, then call Wait for the outcome. A consumer that stops
// reading must cancel the subscription's context.
type Subscription struct {
	C <-chan models.ProcessSnapshot

	done   chan struct{}
	reason models.StopReason
	err    error
}

// Subscribe starts MonitorLive for pid in its own goroutine. Call it again to
// restart a stream that ended.
func (s *Sampler) Subscribe(ctx context.Context, pid int32, interval time.Duration) *Subscription {
	ch := make(chan models.ProcessSnapshot)
	sub := &Subscription{
		C:    ch,
		done: make(chan struct{}),
	}

	go func() {
		defer close(sub.done)

		reason, err := s.MonitorLive(ctx, pid, interval, func(snap models.ProcessSnapshot) error {
			select {
			case ch <- snap:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			reason, err = models.StopCancelled, nil
		}

		sub.reason, sub.err = reason, err
		close(ch)
	}()

	return sub
}

// Wait blocks until the stream ended and returns why
func (sub *Subscription) Wait() (models.StopReason, error) {
	<-sub.done
	return sub.reason, sub.err
}

// Err blocks until the stream ended and returns the outcome as an error:
// errs.ErrProcessEnded, errs.ErrCancelled, or the failure that stopped it
func (sub *Subscription) Err() error {
	reason, err := sub.Wait()
	if err != nil {
		return err
	}
	return ReasonErr(reason)
}
