package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/monify-labs/procwatch/internal/config"
	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/logging"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/internal/sampler"
)

// app carries the state shared by every subcommand
type app struct {
	cfgPath  string
	logLevel string
	format   string

	cfg     *config.Config
	log     *logrus.Logger
	dir     procdir.Directory
	sampler *sampler.Sampler
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errs.ErrNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "procwatch",
		Short: "Process resource sampler, statistics and watchdog",
		Long: `procwatch samples per-process CPU, memory and disk I/O, keeps rolling
statistics with trend and forecast, compares recorded snapshots and runs
a watchdog that logs, exports or kills when thresholds are crossed.

Environment Variables:
  PROCWATCH_CONFIG        Config file path
  PROCWATCH_INTERVAL      Default sampling interval (e.g. 500ms)
  PROCWATCH_LOG_LEVEL     Log level (debug, info, warn, error)
  PROCWATCH_DEBUG         Enable debug logging (true/1)
  PROCWATCH_EXPORT_TOKEN  Bearer token for HTTP and websocket exports

Configuration File:
  /etc/procwatch/env      Environment variables file

Examples:
  procwatch list --sort memory --top 10
  procwatch family 1234
  procwatch sample 1234
  procwatch series 1234 -n 20 -i 500ms
  procwatch watchdog 1234 --cpu-over 90 --log --export http://collector/hook
  procwatch snapshot -f snaps.json --append && procwatch compare snaps.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $PROCWATCH_CONFIG or user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "", "output format: text, json, yaml (default from config)")

	root.AddCommand(
		a.listCmd(),
		a.familyCmd(),
		a.killCmd(),
		a.sampleCmd(),
		a.seriesCmd(),
		a.liveCmd(),
		a.statsCmd(),
		a.compareCmd(),
		a.snapshotCmd(),
		a.watchdogCmd(),
		a.topCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and process directory
func (a *app) setup() error {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load env file: %v\n", err)
	}

	path := a.cfgPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logging.New(level, cfg.LogFormat)

	if a.format == "" {
		a.format = cfg.DefaultFormat
	}
	switch a.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: unknown output format %q", errs.ErrValidation, a.format)
	}

	a.dir = procdir.NewSystem()
	a.sampler = sampler.New(a.dir, a.log)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "procwatch v%s\n", config.Version)
			fmt.Fprintf(out, "Commit: %s\n", config.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", config.BuildDate)
		},
	}
}
