package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monify-labs/procwatch/internal/logging"
	"github.com/monify-labs/procwatch/internal/procdir/procdirtest"
	"github.com/monify-labs/procwatch/internal/sampler"
	"github.com/monify-labs/procwatch/internal/stats"
	"github.com/monify-labs/procwatch/pkg/models"
)

func TestCell(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var c Cell[int]
		assert.Nil(t, c.Take())
		assert.Nil(t, c.Peek())
	})

	t.Run("overwrite_then_take", func(t *testing.T) {
		var c Cell[int]
		one, two := 1, 2
		c.Publish(&one)
		c.Publish(&two)

		require.NotNil(t, c.Peek())
		assert.Equal(t, 2, *c.Peek())

		got := c.Take()
		require.NotNil(t, got)
		assert.Equal(t, 2, *got)
		assert.Nil(t, c.Take())
	})

	t.Run("concurrent_publish_and_take", func(t *testing.T) {
		var c Cell[int]
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				v := i
				c.Publish(&v)
			}
		}()
		last := -1
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if v := c.Take(); v != nil {
					assert.Greater(t, *v, last)
					last = *v
				}
			}
		}()
		wg.Wait()
	})
}

func newAgent(f *procdirtest.Fake) *Agent {
	log := logging.Discard()
	a := New(sampler.New(f, log), stats.NewTracker(8), 5*time.Millisecond, log)
	a.loadFn = func(context.Context) (*models.SystemLoad, error) {
		return &models.SystemLoad{CPUPercent: 12.5, MemTotal: 100, MemUsed: 40, Load1: 0.5}, nil
	}
	a.hostFn = func(context.Context) models.HostInfo {
		return models.HostInfo{Hostname: "box", Platform: "debian", KernelVersion: "6.1.0", CPUModel: "Xeon", CPUThreads: 8}
	}
	return a
}

func TestAgentPublishes(t *testing.T) {
	f := procdirtest.NewFake(
		models.ProcessSnapshot{PID: 1, Name: "init", CPUPercent: 1},
		models.ProcessSnapshot{PID: 2, Name: "sshd", CPUPercent: 2},
		models.ProcessSnapshot{PID: 3, Name: "worker", CPUPercent: 3},
	)
	a := newAgent(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	require.Eventually(t, func() bool { return a.Peek() != nil }, 2*time.Second, 5*time.Millisecond)
	set := a.Latest()
	require.NotNil(t, set)
	assert.Equal(t, []int32{1, 2, 3}, set.PIDs())
	assert.NotEmpty(t, set.ID)

	require.Eventually(t, func() bool { return a.Tracker().Len() == 3 }, 2*time.Second, 5*time.Millisecond)

	f.Remove(2)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int32{1, 3}, a.Tracker().Pids())
	}, 2*time.Second, 5*time.Millisecond)

	status := a.Status()
	assert.Equal(t, "running", status.Status)
	assert.NotZero(t, status.PublishCount)
	assert.Zero(t, status.ErrorCount)
	require.NotNil(t, status.Load)
	assert.Equal(t, 12.5, status.Load.CPUPercent)
	assert.Equal(t, "box", status.Hostname)
	require.NotNil(t, status.Host)
	assert.Equal(t, "6.1.0", status.Host.KernelVersion)
	assert.Equal(t, 8, status.Host.CPUThreads)

	assert.Error(t, a.Start(ctx), "second start must fail")

	require.NoError(t, a.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
	assert.Equal(t, "stopped", a.Status().Status)
	assert.Error(t, a.Stop())
}

func TestAgentCountsErrors(t *testing.T) {
	f := procdirtest.NewFake(models.ProcessSnapshot{PID: 1, Name: "init"})
	f.FailAll(errors.New("permission denied"))
	a := newAgent(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	require.Eventually(t, func() bool { return a.Status().ErrorCount >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, a.Latest())
	assert.Zero(t, a.Status().PublishCount)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop on cancel")
	}
	assert.Equal(t, "stopped", a.Status().Status)
}

func TestNewDefaultsInterval(t *testing.T) {
	log := logging.Discard()
	a := New(sampler.New(procdirtest.NewFake(), log), stats.NewTracker(1), 0, log)
	assert.Positive(t, a.interval)
}
