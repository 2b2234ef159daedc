package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/stats"
	"github.com/monify-labs/procwatch/pkg/models"
)

func (a *app) sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample PID [PID...]",
		Short: "Take one snapshot of one or more processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}

			var snaps []models.ProcessSnapshot
			if len(pids) == 1 {
				snap, err := a.sampler.SampleOnce(cmd.Context(), pids[0])
				if err != nil {
					return err
				}
				snaps = []models.ProcessSnapshot{snap}
			} else {
				snaps, err = a.sampler.SampleMany(cmd.Context(), pids)
				if err != nil {
					return err
				}
			}

			return a.render(cmd.OutOrStdout(), snaps, func(tw *tabwriter.Writer) {
				snapshotHeader(tw)
				for _, s := range snaps {
					snapshotRow(tw, s)
				}
			})
		},
	}
}

type seriesFlags struct {
	iterations int
	interval   time.Duration
}

func (a *app) addSeriesFlags(cmd *cobra.Command, f *seriesFlags) {
	cmd.Flags().IntVarP(&f.iterations, "iterations", "n", 0, "number of samples (default from config)")
	cmd.Flags().DurationVarP(&f.interval, "interval", "i", 0, "time between samples (default from config)")
}

func (a *app) resolveSeries(cmd *cobra.Command, f *seriesFlags) (int, time.Duration) {
	n, interval := f.iterations, f.interval
	if !cmd.Flags().Changed("iterations") {
		n = a.cfg.DefaultIterations
	}
	if !cmd.Flags().Changed("interval") {
		interval = a.cfg.DefaultInterval
	}
	return n, interval
}

func (a *app) seriesCmd() *cobra.Command {
	var f seriesFlags
	cmd := &cobra.Command{
		Use:   "series PID",
		Short: "Sample a process repeatedly at a fixed interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			n, interval := a.resolveSeries(cmd, &f)

			samples, err := a.sampler.SampleSeries(cmd.Context(), pids[0], n, interval)
			if err != nil && !errors.Is(err, errs.ErrCancelled) {
				return err
			}
			if len(samples) < n && err == nil {
				a.log.WithFields(logrus.Fields{"pid": pids[0], "samples": len(samples)}).
					Info("Process exited before the series completed")
			}

			if rerr := a.render(cmd.OutOrStdout(), samples, func(tw *tabwriter.Writer) {
				fmt.Fprint(tw, "TIME\t")
				snapshotHeader(tw)
				for _, s := range samples {
					fmt.Fprintf(tw, "%s\t", s.SampledAt.Format("15:04:05.000"))
					snapshotRow(tw, s)
				}
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	a.addSeriesFlags(cmd, &f)
	return cmd
}

func (a *app) liveCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "live PID",
		Short: "Stream snapshots of a process until it exits or Ctrl-C",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.DefaultInterval
			}

			out := cmd.OutOrStdout()
			tw := newTable(out)
			enc := json.NewEncoder(out)
			first := true

			reason, err := a.sampler.MonitorLive(cmd.Context(), pids[0], interval, func(s models.ProcessSnapshot) error {
				if a.format != "text" {
					// one object per line keeps the stream parseable
					return enc.Encode(s)
				}
				if first {
					fmt.Fprint(tw, "TIME\t")
					snapshotHeader(tw)
					first = false
				}
				fmt.Fprintf(tw, "%s\t", s.SampledAt.Format("15:04:05.000"))
				snapshotRow(tw, s)
				return tw.Flush()
			})
			if err != nil {
				return err
			}

			a.log.WithFields(logrus.Fields{"pid": pids[0], "reason": reason}).Info("Live monitoring finished")
			return nil
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "time between samples (default from config)")
	return cmd
}

type channelMetrics struct {
	Channel string                    `json:"channel" yaml:"channel"`
	Metrics models.StatisticalMetrics `json:"metrics" yaml:"metrics"`
}

type statsReport struct {
	PID      int32            `json:"pid" yaml:"pid"`
	Name     string           `json:"name" yaml:"name"`
	Span     time.Duration    `json:"span" yaml:"span"`
	Channels []channelMetrics `json:"channels" yaml:"channels"`
}

func (a *app) statsCmd() *cobra.Command {
	var (
		f        seriesFlags
		channels []string
	)
	cmd := &cobra.Command{
		Use:   "stats PID",
		Short: "Sample a process and report rolling statistics, trend and forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			selected := models.Channels
			if len(channels) > 0 {
				selected = nil
				for _, name := range channels {
					ch, err := models.ParseChannel(name)
					if err != nil {
						return fmt.Errorf("%w: %v", errs.ErrValidation, err)
					}
					selected = append(selected, ch)
				}
			}
			n, interval := a.resolveSeries(cmd, &f)

			samples, err := a.sampler.SampleSeries(cmd.Context(), pids[0], n, interval)
			if err != nil && (!errors.Is(err, errs.ErrCancelled) || len(samples) == 0) {
				return err
			}

			capacity := a.cfg.HistorySize
			if n > capacity {
				capacity = n
			}
			tracker := stats.NewTracker(capacity)
			tracker.Observe(samples...)

			report := statsReport{PID: pids[0], Name: tracker.Name(pids[0])}
			report.Span, _ = tracker.TimeWindow(pids[0])
			for _, ch := range selected {
				m, merr := tracker.Metrics(pids[0], ch)
				if merr != nil {
					return merr
				}
				report.Channels = append(report.Channels, channelMetrics{Channel: ch.String(), Metrics: m})
			}

			if rerr := a.render(cmd.OutOrStdout(), report, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "PID %d (%s), %d samples over %s\n\n", report.PID, report.Name, len(samples), report.Span)
				fmt.Fprintln(tw, "CHANNEL\tN\tMEAN\tMEDIAN\tSTDDEV\tMIN\tMAX\tP95\tSKEW\tTREND\tFORECAST")
				for _, c := range report.Channels {
					ch, _ := models.ParseChannel(c.Channel)
					metricsRow(tw, ch, c.Metrics)
				}
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	a.addSeriesFlags(cmd, &f)
	cmd.Flags().StringSliceVar(&channels, "channel", nil, "channels to report: cpu, memory, disk_read, disk_write (default all)")
	return cmd
}
