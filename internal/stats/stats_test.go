package stats

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

const eps = 1e-9

func TestComputeMetrics(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m := ComputeMetrics(nil)
		assert.Equal(t, models.StatisticalMetrics{}, m)
		assert.Nil(t, m.Percentile95)
		assert.Nil(t, m.Skewness)
	})

	t.Run("single_value", func(t *testing.T) {
		m := ComputeMetrics([]float64{42})
		assert.Equal(t, 42.0, m.Mean)
		assert.Equal(t, 42.0, m.Median)
		assert.Zero(t, m.StdDev)
		assert.Zero(t, m.Trend)
		assert.Equal(t, 42.0, m.Forecast)
		require.NotNil(t, m.Percentile95)
		assert.Equal(t, 42.0, *m.Percentile95)
		assert.Nil(t, m.Skewness)
	})

	t.Run("constant_values", func(t *testing.T) {
		m := ComputeMetrics([]float64{5, 5, 5, 5})
		assert.Equal(t, 5.0, m.Mean)
		assert.Zero(t, m.StdDev)
		assert.Zero(t, m.Trend)
		assert.Equal(t, 5.0, m.Forecast)
		assert.Nil(t, m.Skewness)
	})

	t.Run("linear_series", func(t *testing.T) {
		m := ComputeMetrics([]float64{1, 2, 3})
		assert.InDelta(t, 2.0, m.Mean, eps)
		assert.InDelta(t, 2.0, m.Median, eps)
		assert.InDelta(t, math.Sqrt(2.0/3.0), m.StdDev, eps)
		assert.InDelta(t, 1.0, m.Trend, eps)
		assert.InDelta(t, 4.0, m.Forecast, eps)
		assert.Equal(t, 1.0, m.Min)
		assert.Equal(t, 3.0, m.Max)
		require.NotNil(t, m.Skewness)
		assert.InDelta(t, 0.0, *m.Skewness, eps)
		assert.Equal(t, 3, m.Samples)
	})

	t.Run("even_count_median_and_p95", func(t *testing.T) {
		m := ComputeMetrics([]float64{4, 1, 3, 2})
		assert.InDelta(t, 2.5, m.Median, eps)
		// ceil(0.95*4) = 4, clamped to index 3
		require.NotNil(t, m.Percentile95)
		assert.Equal(t, 4.0, *m.Percentile95)
	})

	t.Run("p95_index", func(t *testing.T) {
		values := make([]float64, 100)
		for i := range values {
			values[i] = float64(i + 1)
		}
		m := ComputeMetrics(values)
		// ceil(95) = 95 -> sorted[95] = 96
		require.NotNil(t, m.Percentile95)
		assert.Equal(t, 96.0, *m.Percentile95)
	})

	t.Run("right_skew_is_positive", func(t *testing.T) {
		m := ComputeMetrics([]float64{1, 1, 1, 1, 10})
		require.NotNil(t, m.Skewness)
		assert.Greater(t, *m.Skewness, 0.0)
	})

	t.Run("decreasing_trend", func(t *testing.T) {
		m := ComputeMetrics([]float64{10, 8, 6, 4})
		assert.InDelta(t, -2.0, m.Trend, eps)
		assert.InDelta(t, 2.0, m.Forecast, eps)
	})

	t.Run("does_not_reorder_input", func(t *testing.T) {
		values := []float64{3, 1, 2}
		ComputeMetrics(values)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func TestWindow(t *testing.T) {
	t.Run("capacity_clamped", func(t *testing.T) {
		assert.Equal(t, 1, NewWindow(0).Cap())
		assert.Equal(t, 1, NewWindow(-5).Cap())
	})

	t.Run("evicts_oldest", func(t *testing.T) {
		w := NewWindow(3)
		for _, v := range []float64{10, 20, 30, 40} {
			w.AddSample(v, v, v, v)
		}
		assert.Equal(t, 3, w.Len())
		assert.Equal(t, []float64{20, 30, 40}, w.Values(models.ChannelCPU))
		assert.InDelta(t, 30.0, w.Metrics(models.ChannelCPU).Mean, eps)
	})

	t.Run("channels_stay_aligned", func(t *testing.T) {
		w := NewWindow(4)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 11; i++ {
			f := float64(i)
			w.AddSampleAt(base.Add(time.Duration(i)*time.Second), f, f*10, f*100, f*1000)
		}

		cpu := w.Values(models.ChannelCPU)
		mem := w.Values(models.ChannelMemory)
		read := w.Values(models.ChannelDiskRead)
		write := w.Values(models.ChannelDiskWrite)
		ts := w.Timestamps()
		require.Len(t, ts, 4)
		for i := range cpu {
			assert.Equal(t, cpu[i]*10, mem[i])
			assert.Equal(t, cpu[i]*100, read[i])
			assert.Equal(t, cpu[i]*1000, write[i])
			assert.Equal(t, base.Add(time.Duration(cpu[i])*time.Second), ts[i])
		}
		assert.Equal(t, []float64{7, 8, 9, 10}, cpu)
	})

	t.Run("time_window", func(t *testing.T) {
		w := NewWindow(5)
		_, ok := w.TimeWindow()
		assert.False(t, ok)

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		w.AddSampleAt(base, 1, 1, 1, 1)
		_, ok = w.TimeWindow()
		assert.False(t, ok)

		w.AddSampleAt(base.Add(3*time.Second), 1, 1, 1, 1)
		d, ok := w.TimeWindow()
		assert.True(t, ok)
		assert.Equal(t, 3*time.Second, d)
	})

	t.Run("empty_metrics", func(t *testing.T) {
		m := NewWindow(3).Metrics(models.ChannelMemory)
		assert.Zero(t, m.Mean)
		assert.Nil(t, m.Percentile95)
	})

	t.Run("reset", func(t *testing.T) {
		w := NewWindow(2)
		w.AddSample(1, 1, 1, 1)
		w.Reset()
		assert.Zero(t, w.Len())
		assert.Empty(t, w.Values(models.ChannelCPU))
	})
}

func snap(pid int32, cpu float64, mem, read, write uint64) models.ProcessSnapshot {
	return models.ProcessSnapshot{
		PID:        pid,
		Name:       "svc",
		CPUPercent: cpu,
		Memory:     mem,
		ReadBytes:  read,
		WriteBytes: write,
		SampledAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTracker(t *testing.T) {
	t.Run("unknown_pid", func(t *testing.T) {
		_, err := NewTracker(10).Metrics(1, models.ChannelCPU)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("disk_channels_are_deltas", func(t *testing.T) {
		tr := NewTracker(10)
		tr.Observe(snap(1, 5, 100, 1000, 50))
		tr.Observe(snap(1, 7, 200, 1500, 80))
		tr.Observe(snap(1, 9, 300, 400, 90)) // read counter reset

		read, err := tr.Values(1, models.ChannelDiskRead)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 500, 0}, read)

		write, err := tr.Values(1, models.ChannelDiskWrite)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 30, 10}, write)

		m, err := tr.Metrics(1, models.ChannelCPU)
		require.NoError(t, err)
		assert.InDelta(t, 7.0, m.Mean, eps)
		assert.InDelta(t, 2.0, m.Trend, eps)
	})

	t.Run("retain_drops_exited", func(t *testing.T) {
		tr := NewTracker(10)
		tr.Observe(snap(1, 1, 1, 0, 0), snap(2, 1, 1, 0, 0), snap(3, 1, 1, 0, 0))
		assert.Equal(t, 1, tr.Retain([]int32{1, 3}))
		assert.Equal(t, []int32{1, 3}, tr.Pids())

		tr.Forget(3)
		assert.Equal(t, []int32{1}, tr.Pids())
		assert.Equal(t, "svc", tr.Name(1))
	})

	t.Run("reused_pid_starts_fresh", func(t *testing.T) {
		tr := NewTracker(10)
		first := snap(1, 1, 1, 0, 0)
		first.StartTime = time.Unix(100, 0)
		tr.Observe(first, first)

		second := snap(1, 2, 2, 0, 0)
		second.StartTime = time.Unix(200, 0)
		tr.Observe(second)

		cpu, err := tr.Values(1, models.ChannelCPU)
		require.NoError(t, err)
		assert.Equal(t, []float64{2}, cpu)
	})

	t.Run("concurrent_readers", func(t *testing.T) {
		tr := NewTracker(16)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				tr.Observe(snap(1, float64(i), uint64(i), uint64(i), uint64(i)))
			}
		}()
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 200; j++ {
					_, _ = tr.Metrics(1, models.ChannelCPU)
					tr.TimeWindow(1)
				}
			}()
		}
		wg.Wait()

		cpu, err := tr.Values(1, models.ChannelCPU)
		require.NoError(t, err)
		assert.Len(t, cpu, 16)
		assert.Equal(t, 199.0, cpu[len(cpu)-1])
	})
}
