// Package watchdog polls one process, evaluates threshold conditions and
// fires actions when they hold.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/export"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/internal/sampler"
	"github.com/monify-labs/procwatch/pkg/models"
)

const (
	payloadTrigger = "watchdog_trigger"
	payloadExit    = "process_exit"
)

// Engine runs watchdog loops. Exporter may be nil, in which case Export
// actions are logged and skipped.
type Engine struct {
	sampler  *sampler.Sampler
	exporter export.Exporter
	log      logrus.FieldLogger
	hostname string
	now      func() time.Time
}

// New creates a watchdog engine
func New(s *sampler.Sampler, exporter export.Exporter, log logrus.FieldLogger, hostname string) *Engine {
	return &Engine{
		sampler:  s,
		exporter: exporter,
		log:      log,
		hostname: hostname,
		now:      time.Now,
	}
}

// Validate checks a watchdog configuration
func Validate(conditions []models.Condition, actions []models.Action) error {
	if len(conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", errs.ErrValidation)
	}
	if len(actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", errs.ErrValidation)
	}

	for _, c := range conditions {
		switch c.Kind {
		case models.ConditionCPUAbove:
			if c.CPUPercent < 0 {
				return fmt.Errorf("%w: cpu threshold must be >= 0, got %.2f", errs.ErrValidation, c.CPUPercent)
			}
		case models.ConditionMemAbove, models.ConditionProcessExit:
		default:
			return fmt.Errorf("%w: unknown condition %q", errs.ErrValidation, c.Kind)
		}
	}

	for _, a := range actions {
		switch a.Kind {
		case models.ActionLog, models.ActionKill:
		case models.ActionExport:
			if a.Target == "" {
				return fmt.Errorf("%w: export action needs a target", errs.ErrValidation)
			}
		default:
			return fmt.Errorf("%w: unknown action %q", errs.ErrValidation, a.Kind)
		}
	}
	return nil
}

// Run watches pid until it exits or ctx is done. Every tick each condition
// that holds fires every action, so n satisfied conditions and m actions
// record n*m triggers. A condition that keeps holding fires again on every
// tick.
//
// A failed Kill stops the run with errs.ErrActionExecution; the report built
// so far is returned with the error. A Kill that finds the process already
// gone is skipped and not recorded. Export failures are only logged.
func (e *Engine) Run(ctx context.Context, pid int32, interval time.Duration, conditions []models.Condition, actions []models.Action) (*models.WatchdogReport, error) {
	if err := Validate(conditions, actions); err != nil {
		return nil, err
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must be >= 0", errs.ErrValidation)
	}

	report := &models.WatchdogReport{
		ID:        uuid.New().String(),
		PID:       pid,
		StartedAt: e.now(),
		Triggered: []models.Trigger{},
	}
	log := e.log.WithFields(logrus.Fields{"pid": pid, "report_id": report.ID})
	log.WithFields(logrus.Fields{
		"conditions": len(conditions),
		"actions":    len(actions),
		"interval":   interval,
	}).Info("Watchdog started")

	finish := func(reason models.StopReason) *models.WatchdogReport {
		report.Reason = reason
		report.Duration = e.now().Sub(report.StartedAt)
		log.WithFields(logrus.Fields{
			"reason":    reason,
			"ticks":     report.Ticks,
			"triggered": len(report.Triggered),
		}).Info("Watchdog stopped")
		return report
	}

	for {
		if ctx.Err() != nil {
			return finish(models.StopCancelled), nil
		}

		snap, err := e.sampler.SampleOnce(ctx, pid)
		if errors.Is(err, errs.ErrNotFound) {
			if report.Ticks > 0 {
				e.fireExit(ctx, report, conditions, actions, log)
			}
			return finish(models.StopProcessExited), nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return finish(models.StopCancelled), nil
			}
			finish("")
			return report, err
		}
		report.Ticks++

		for _, cond := range conditions {
			if !cond.Triggered(snap.CPUPercent, snap.Memory) {
				continue
			}
			for _, action := range actions {
				if err := e.fire(ctx, report, cond, action, &snap, log); err != nil {
					finish("")
					return report, err
				}
			}
		}

		if !sampler.Wait(ctx, interval) {
			return finish(models.StopCancelled), nil
		}
	}
}

// fire executes one action for a satisfied condition and records it
func (e *Engine) fire(ctx context.Context, report *models.WatchdogReport, cond models.Condition, action models.Action, snap *models.ProcessSnapshot, log logrus.FieldLogger) error {
	firedAt := e.now()
	entry := log.WithFields(logrus.Fields{
		"condition": cond.String(),
		"action":    action.String(),
		"cpu":       snap.CPUPercent,
		"memory":    snap.Memory,
	})

	switch action.Kind {
	case models.ActionLog:
		entry.Warn(logMessage(action, cond))
	case models.ActionKill:
		err := e.sampler.Directory().Signal(ctx, report.PID, procdir.SignalKill)
		if errors.Is(err, errs.ErrNotFound) {
			// gone since the poll, usually killed by an earlier firing this tick
			entry.Debug("Skipping kill: process already gone")
			return nil
		}
		if err != nil {
			entry.WithError(err).Error("Kill action failed")
			return fmt.Errorf("%w: kill pid %d: %w", errs.ErrActionExecution, report.PID, err)
		}
		entry.Warn("Process killed")
	case models.ActionExport:
		e.export(ctx, action.Target, &models.ExportPayload{
			Kind:      payloadTrigger,
			Hostname:  e.hostname,
			ReportID:  report.ID,
			PID:       report.PID,
			Condition: cond,
			Snapshot:  snap,
			FiredAt:   firedAt,
		}, entry)
	}

	report.Triggered = append(report.Triggered, models.Trigger{
		Condition: cond,
		Action:    action,
		FiredAt:   firedAt,
	})
	return nil
}

// fireExit runs Log and Export actions for every ProcessExit condition once
// the process is gone. Kill has nothing left to signal.
func (e *Engine) fireExit(ctx context.Context, report *models.WatchdogReport, conditions []models.Condition, actions []models.Action, log logrus.FieldLogger) {
	for _, cond := range conditions {
		if cond.Kind != models.ConditionProcessExit {
			continue
		}
		for _, action := range actions {
			firedAt := e.now()
			entry := log.WithFields(logrus.Fields{
				"condition": cond.String(),
				"action":    action.String(),
			})

			switch action.Kind {
			case models.ActionLog:
				entry.Warn(logMessage(action, cond))
			case models.ActionExport:
				e.export(ctx, action.Target, &models.ExportPayload{
					Kind:      payloadExit,
					Hostname:  e.hostname,
					ReportID:  report.ID,
					PID:       report.PID,
					Condition: cond,
					FiredAt:   firedAt,
				}, entry)
			case models.ActionKill:
				entry.Debug("Skipping kill: process already exited")
				continue
			}

			report.Triggered = append(report.Triggered, models.Trigger{
				Condition: cond,
				Action:    action,
				FiredAt:   firedAt,
			})
		}
	}
}

func (e *Engine) export(ctx context.Context, target string, payload *models.ExportPayload, log logrus.FieldLogger) {
	if e.exporter == nil {
		log.Warn("No exporter configured, dropping payload")
		return
	}
	if err := e.exporter.Export(ctx, target, payload); err != nil {
		log.WithError(err).WithField("target", target).Warn("Export failed")
		return
	}
	log.WithField("target", target).Debug("Payload exported")
}

func logMessage(action models.Action, cond models.Condition) string {
	if action.Message != "" {
		return action.Message
	}
	return fmt.Sprintf("Watchdog condition met: %s", cond)
}
