// Package stats keeps bounded per-process metric history and derives
// descriptive statistics, trend and a one-step forecast from it.
package stats

import (
	"time"

	"github.com/monify-labs/procwatch/pkg/models"
)

const numChannels = 4

// record is one tick: a value for every channel plus its timestamp
type record struct {
	at   time.Time
	vals [numChannels]float64
}

// Window is a fixed-capacity FIFO of samples. Every channel and the timestamp
// list always have the same length since they share one record per tick.
//
// A Window is not safe for concurrent use; see Tracker.
type Window struct {
	buf   []record
	start int // index of the oldest record
	n     int
	now   func() time.Time
}

// NewWindow creates a window retaining at most capacity samples. Capacities
// below 1 are clamped to 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		buf: make([]record, capacity),
		now: time.Now,
	}
}

// AddSample appends one value per channel stamped with the current time
func (w *Window) AddSample(cpu, mem, read, write float64) {
	w.AddSampleAt(w.now(), cpu, mem, read, write)
}

// AddSampleAt appends one value per channel stamped with at, evicting the
// oldest sample once the window is full
func (w *Window) AddSampleAt(at time.Time, cpu, mem, read, write float64) {
	rec := record{at: at, vals: [numChannels]float64{cpu, mem, read, write}}

	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = rec
		w.n++
		return
	}
	w.buf[w.start] = rec
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of retained samples
func (w *Window) Len() int {
	return w.n
}

// Cap returns the window capacity
func (w *Window) Cap() int {
	return len(w.buf)
}

// Values returns the retained values of ch, oldest first
func (w *Window) Values(ch models.Channel) []float64 {
	if int(ch) < 0 || int(ch) >= numChannels {
		return nil
	}
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)].vals[ch]
	}
	return out
}

// Timestamps returns the retained sample times, oldest first
func (w *Window) Timestamps() []time.Time {
	out := make([]time.Time, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)].at
	}
	return out
}

// Metrics computes statistics over the retained values of ch
func (w *Window) Metrics(ch models.Channel) models.StatisticalMetrics {
	return ComputeMetrics(w.Values(ch))
}

// TimeWindow returns the span between the oldest and newest sample. It is
// not ok with fewer than two samples.
func (w *Window) TimeWindow() (time.Duration, bool) {
	if w.n < 2 {
		return 0, false
	}
	oldest := w.buf[w.start].at
	newest := w.buf[(w.start+w.n-1)%len(w.buf)].at
	return newest.Sub(oldest), true
}

// Reset drops every retained sample
func (w *Window) Reset() {
	w.start, w.n = 0, 0
}
