package main

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/monify-labs/procwatch/internal/compare"
	"github.com/monify-labs/procwatch/internal/snapfile"
	"github.com/monify-labs/procwatch/pkg/models"
)

type compareReport struct {
	Summary compare.Summary       `json:"summary" yaml:"summary"`
	Deltas  []models.ProcessDelta `json:"deltas" yaml:"deltas"`
}

func (a *app) compareCmd() *cobra.Command {
	var summaryOnly bool
	cmd := &cobra.Command{
		Use:   "compare FILE [FILE...]",
		Short: "Compare the two most recent recorded snapshot sets",
		Long: `Loads every snapshot set stored in the given files (JSON or YAML) and
compares the two most recent ones by capture time. A single file may hold
a list of sets, e.g. one written with 'procwatch snapshot -f FILE --append'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deltas, err := compare.Files(args...)
			if err != nil {
				return err
			}
			report := compareReport{Summary: compare.Summarize(deltas), Deltas: deltas}
			if summaryOnly {
				report.Deltas = nil
			}

			return a.render(cmd.OutOrStdout(), report, func(tw *tabwriter.Writer) {
				s := report.Summary
				fmt.Fprintf(tw, "appeared %d, disappeared %d, changed %d, unchanged %d, net cpu %+.1f%%, net memory %s\n",
					s.Appeared, s.Disappeared, s.Changed, s.Unchanged, s.NetCPU, formatSignedBytes(s.NetMemory))
				if summaryOnly {
					return
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "PID\tNAME\tKIND\tCPU BEFORE\tCPU AFTER\tCPU DELTA\tMEM BEFORE\tMEM AFTER\tMEM DELTA")
				for _, d := range report.Deltas {
					deltaRow(tw, d)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "print only the summary")
	return cmd
}

func (a *app) snapshotCmd() *cobra.Command {
	var (
		path     string
		appendTo bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Enumerate every process and print or record the snapshot set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.sampler.SampleAll(cmd.Context())
			if err != nil {
				return err
			}

			if path == "" {
				return a.render(cmd.OutOrStdout(), set, func(tw *tabwriter.Writer) {
					snapshotHeader(tw)
					for _, s := range set.Snapshots {
						snapshotRow(tw, s)
					}
				})
			}

			if !appendTo {
				if err := snapfile.Save(path, set); err != nil {
					return err
				}
			} else {
				sets, err := snapfile.Load(path)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				if err := snapfile.SaveAll(path, append(sets, *set)); err != nil {
					return err
				}
			}

			a.log.WithFields(logrus.Fields{
				"path":      path,
				"set_id":    set.ID,
				"processes": set.Len(),
			}).Info("Snapshot recorded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "write the set to FILE (.json, .yaml or .yml) instead of printing")
	cmd.Flags().BoolVar(&appendTo, "append", false, "append to the sets already stored in FILE")
	return cmd
}
