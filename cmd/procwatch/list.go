package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/procdir"
	"github.com/monify-labs/procwatch/internal/proclist"
)

func (a *app) listCmd() *cobra.Command {
	var (
		filter proclist.Filter
		sortBy string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running processes",
		Long: `Lists every running process. --name and --user keep processes whose
name or user contains the given text; --top keeps the first rows after
sorting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := proclist.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			set, err := a.sampler.SampleAll(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := proclist.Select(set.Snapshots, filter, key, top)
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
				snapshotHeader(tw)
				for _, s := range rows {
					snapshotRow(tw, s)
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter.Name, "name", "", "only processes whose name contains this text")
	cmd.Flags().StringVar(&filter.User, "user", "", "only processes whose user contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", "cpu", "sort by cpu, memory, name, user or pid")
	cmd.Flags().IntVarP(&top, "top", "t", 0, "show only the first N processes")
	return cmd
}

func (a *app) familyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "family PID",
		Short: "Show a process and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			set, err := a.sampler.SampleAll(cmd.Context())
			if err != nil {
				return err
			}
			family, err := proclist.Family(set.Snapshots, pids[0])
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), family, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "PID\tPPID\tNAME\tCPU%\tMEM\tSTATE\tUSER")
				for _, m := range family {
					fmt.Fprintf(tw, "%d\t%d\t%s%s\t%.1f\t%s\t%s\t%s\n",
						m.PID, m.ParentPID, strings.Repeat("  ", m.Depth), m.Name,
						m.CPUPercent, formatBytes(m.Memory), m.State, m.User)
				}
			})
		},
	}
}

type killResult struct {
	PID    int32  `json:"pid" yaml:"pid"`
	Signal string `json:"signal" yaml:"signal"`
}

func (a *app) killCmd() *cobra.Command {
	var signal string
	cmd := &cobra.Command{
		Use:   "kill PID",
		Short: "Send a signal to a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}
			kind, err := procdir.ParseSignal(signal)
			if err != nil {
				return fmt.Errorf("%w: %w", errs.ErrValidation, err)
			}
			if err := a.dir.Signal(cmd.Context(), pids[0], kind); err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{"pid": pids[0], "signal": kind}).Info("Signal sent")

			result := killResult{PID: pids[0], Signal: kind.String()}
			return a.render(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Sent %s to pid %d\n", result.Signal, result.PID)
			})
		},
	}
	cmd.Flags().StringVarP(&signal, "signal", "s", "KILL", "signal to send: TERM, KILL or INT")
	return cmd
}
