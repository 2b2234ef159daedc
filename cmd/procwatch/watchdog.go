package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/monify-labs/procwatch/internal/export"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/internal/watchdog"
	"github.com/monify-labs/procwatch/pkg/models"
)

type watchdogFlags struct {
	interval time.Duration
	cpuOver  float64
	memOver  string
	onExit   bool
	log      bool
	message  string
	kill     bool
	exports  []string
}

func (f *watchdogFlags) build(cmd *cobra.Command) ([]models.Condition, []models.Action, error) {
	var (
		conds   []models.Condition
		actions []models.Action
	)

	if cmd.Flags().Changed("cpu-over") {
		conds = append(conds, models.CPUAbove(f.cpuOver))
	}
	if f.memOver != "" {
		bytes, err := parseBytes(f.memOver)
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, models.MemAbove(bytes))
	}
	if f.onExit {
		conds = append(conds, models.ProcessExit())
	}

	if f.log || f.message != "" {
		actions = append(actions, models.LogAction(f.message))
	}
	if f.kill {
		actions = append(actions, models.KillAction())
	}
	for _, target := range f.exports {
		actions = append(actions, models.ExportAction(target))
	}

	if err := watchdog.Validate(conds, actions); err != nil {
		return nil, nil, err
	}
	return conds, actions, nil
}

func (a *app) watchdogCmd() *cobra.Command {
	var f watchdogFlags
	cmd := &cobra.Command{
		Use:   "watchdog PID",
		Short: "Watch a process and act when thresholds are crossed",
		Long: `Polls PID every interval. Each tick, every condition that holds fires
every configured action, and keeps firing while it holds. The run ends when
the process exits or on Ctrl-C, then prints the trigger report.

Export targets may be http(s):// or ws(s):// URLs or a file path that
receives one JSON line per event.`,
		Example: `  procwatch watchdog 1234 --cpu-over 90 --log
  procwatch watchdog 1234 --mem-over 2GiB --kill --export /var/log/procwatch.jsonl
  procwatch watchdog 1234 --on-exit --message "worker died" --export https://hooks.example.com/p`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			conds, actions, err := f.build(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				f.interval = a.cfg.DefaultInterval
			}

			router := export.NewRouter(a.cfg.ExportToken)
			defer router.Close()

			host := procdir.CollectHostInfo(cmd.Context())
			engine := watchdog.New(a.sampler, router, a.log, host.Hostname)

			report, runErr := engine.Run(cmd.Context(), pids[0], f.interval, conds, actions)
			if report == nil {
				return runErr
			}

			if err := a.render(cmd.OutOrStdout(), report, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Watchdog %s for pid %d: %d ticks in %s, %d triggers, stopped: %s\n",
					report.ID, report.PID, report.Ticks, report.Duration.Round(time.Millisecond),
					len(report.Triggered), stopLabel(report.Reason))
				if len(report.Triggered) == 0 {
					return
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "TIME\tCONDITION\tACTION")
				for _, t := range report.Triggered {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", t.FiredAt.Format("15:04:05.000"), t.Condition, t.Action)
				}
			}); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().DurationVarP(&f.interval, "interval", "i", 0, "poll interval (default from config)")
	cmd.Flags().Float64Var(&f.cpuOver, "cpu-over", 0, "fire while CPU usage is above this percent")
	cmd.Flags().StringVar(&f.memOver, "mem-over", "", "fire while resident memory is above this size (e.g. 512MiB)")
	cmd.Flags().BoolVar(&f.onExit, "on-exit", false, "fire once when the process exits")
	cmd.Flags().BoolVar(&f.log, "log", false, "log each trigger")
	cmd.Flags().StringVar(&f.message, "message", "", "message for the log action (implies --log)")
	cmd.Flags().BoolVar(&f.kill, "kill", false, "send SIGKILL when a condition fires")
	cmd.Flags().StringArrayVar(&f.exports, "export", nil, "export each trigger to a URL or file (repeatable)")
	return cmd
}

func stopLabel(reason models.StopReason) string {
	if reason == "" {
		return "action failed"
	}
	return string(reason)
}
