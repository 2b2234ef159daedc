// Package agent runs the background updater: a ticker loop that enumerates
// every process, folds the result into per-pid history and publishes the
// latest snapshot set for an interactive consumer.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/monify-labs/procwatch/internal/config"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/internal/sampler"
	"github.com/monify-labs/procwatch/internal/stats"
	"github.com/monify-labs/procwatch/pkg/models"
)

const collectTimeout = 10 * time.Second

// Agent periodically enumerates processes in the background
type Agent struct {
	sampler  *sampler.Sampler
	tracker  *stats.Tracker
	cell     Cell[models.SnapshotSet]
	interval time.Duration
	log      logrus.FieldLogger
	loadFn   func(context.Context) (*models.SystemLoad, error)
	hostFn   func(context.Context) models.HostInfo

	// State
	mu              sync.RWMutex
	running         bool
	host            *models.HostInfo
	startTime       time.Time
	lastEnumeration time.Time
	lastPublish     time.Time
	publishCount    uint64
	errorCount      uint64
	load            *models.SystemLoad

	stopChan chan struct{}
}

// New creates an agent that enumerates every interval. Non-positive
// intervals fall back to config.RefreshInterval.
func New(s *sampler.Sampler, tracker *stats.Tracker, interval time.Duration, log logrus.FieldLogger) *Agent {
	if interval <= 0 {
		interval = config.RefreshInterval
	}
	return &Agent{
		sampler:  s,
		tracker:  tracker,
		interval: interval,
		log:      log,
		loadFn:   procdir.CollectSystemLoad,
		hostFn:   procdir.CollectHostInfo,
	}
}

// Start runs the collection loop until ctx is done or Stop is called. It
// collects once immediately and then on every tick.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.stopChan = make(chan struct{})
	stopChan := a.stopChan
	a.mu.Unlock()

	host := a.hostFn(ctx)
	a.mu.Lock()
	a.host = &host
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"hostname": host.Hostname,
		"platform": host.Platform,
		"kernel":   host.KernelVersion,
		"cpus":     host.CPUThreads,
		"interval": a.interval,
	}).Info("Agent starting")

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Agent stopping: context cancelled")
			a.halt()
			return nil

		case <-stopChan:
			a.log.Info("Agent stopping: stop signal received")
			return nil

		case <-ticker.C:
			a.collect(ctx)
		}
	}
}

// collect runs one enumeration and publishes it. Failures are counted and
// logged; the loop keeps going.
func (a *Agent) collect(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	set, err := a.sampler.SampleAll(opCtx)
	now := time.Now()
	if err != nil {
		a.log.WithError(err).Error("Failed to enumerate processes")
		a.mu.Lock()
		a.errorCount++
		a.mu.Unlock()
		return
	}

	load, err := a.loadFn(opCtx)
	if err != nil {
		a.log.WithError(err).Debug("Failed to read system load")
	}

	a.tracker.Observe(set.Snapshots...)
	dropped := a.tracker.Retain(set.PIDs())
	a.cell.Publish(set)

	a.mu.Lock()
	a.lastEnumeration = now
	a.lastPublish = time.Now()
	a.publishCount++
	if load != nil {
		a.load = load
	}
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"set_id":    set.ID,
		"processes": set.Len(),
		"dropped":   dropped,
	}).Debug("Snapshot set published")
}

// halt marks the agent stopped, reporting whether it was running
func (a *Agent) halt() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return false
	}
	close(a.stopChan)
	a.running = false
	return true
}

// Stop stops the collection loop
func (a *Agent) Stop() error {
	if !a.halt() {
		return fmt.Errorf("agent is not running")
	}
	a.log.Info("Stopping agent")
	return nil
}

// Latest takes the newest published set, or nil if none arrived since the
// previous call
func (a *Agent) Latest() *models.SnapshotSet {
	return a.cell.Take()
}

// Peek returns the newest published set without consuming it
func (a *Agent) Peek() *models.SnapshotSet {
	return a.cell.Peek()
}

// Tracker returns the per-pid history fed by the agent
func (a *Agent) Tracker() *stats.Tracker {
	return a.tracker
}

// Status returns the current status of the agent
func (a *Agent) Status() *models.AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := "stopped"
	if a.running {
		status = "running"
	}

	uptime := uint64(0)
	if !a.startTime.IsZero() {
		uptime = uint64(time.Since(a.startTime).Seconds())
	}

	hostname := ""
	if a.host != nil {
		hostname = a.host.Hostname
	}

	return &models.AgentStatus{
		Hostname:        hostname,
		Host:            a.host,
		Version:         config.Version,
		Uptime:          uptime,
		LastEnumeration: a.lastEnumeration,
		LastPublish:     a.lastPublish,
		PublishCount:    a.publishCount,
		ErrorCount:      a.errorCount,
		TrackedPIDs:     a.tracker.Len(),
		Load:            a.load,
		Status:          status,
	}
}
