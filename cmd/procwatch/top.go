package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/monify-labs/procwatch/internal/agent"
	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/stats"
	"github.com/monify-labs/procwatch/pkg/models"
)

const (
	enterAltScreen = "\x1b[?1049h\x1b[H"
	exitAltScreen  = "\x1b[?1049l"
	clearScreen    = "\x1b[H\x1b[2J"
	pollInterval   = 100 * time.Millisecond
)

type topFlags struct {
	refresh time.Duration
	sortBy  string
	rows    int
	once    bool
}

func (a *app) topCmd() *cobra.Command {
	var f topFlags
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Interactive process table fed by the background updater",
		Long: `Shows the busiest processes with rolling CPU statistics. A background
updater enumerates every refresh interval; the display picks up the latest
enumeration on its own cadence. Press q or Ctrl-C to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch f.sortBy {
			case "cpu", "mem", "pid", "trend":
			default:
				return fmt.Errorf("%w: --sort must be cpu, mem, pid or trend", errs.ErrValidation)
			}
			if !cmd.Flags().Changed("refresh") {
				f.refresh = a.cfg.RefreshInterval
			}
			return a.runTop(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().DurationVarP(&f.refresh, "refresh", "r", 0, "enumeration interval (default from config)")
	cmd.Flags().StringVar(&f.sortBy, "sort", "cpu", "sort by cpu, mem, pid or trend")
	cmd.Flags().IntVarP(&f.rows, "rows", "n", 0, "rows to show (default fits the terminal)")
	cmd.Flags().BoolVar(&f.once, "once", false, "print the first table and exit")
	return cmd
}

func (a *app) runTop(ctx context.Context, out io.Writer, f topFlags) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updater := agent.New(a.sampler, stats.NewTracker(a.cfg.HistorySize), f.refresh, a.log)
	done := make(chan error, 1)
	go func() { done <- updater.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	interactive := !f.once && isTerminal(os.Stdout) && isTerminal(os.Stdin)
	if interactive {
		// keep log lines from tearing the screen
		a.log.SetOutput(io.Discard)

		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), state)

		fmt.Fprint(out, enterAltScreen)
		defer fmt.Fprint(out, exitAltScreen)

		keysDone := make(chan struct{})
		go func() {
			defer close(keysDone)
			watchKeys(ctx, os.Stdin, cancel)
		}()
		defer func() {
			cancel()
			<-keysDone
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if set := updater.Latest(); set != nil {
			frame := renderTop(set, updater.Tracker(), updater.Status(), f.sortBy, a.visibleRows(f, interactive))
			if interactive {
				frame = clearScreen + strings.ReplaceAll(frame, "\n", "\r\n")
			}
			if _, err := io.WriteString(out, frame); err != nil {
				return err
			}
			if f.once {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) visibleRows(f topFlags, interactive bool) int {
	if f.rows > 0 {
		return f.rows
	}
	if interactive {
		if _, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil && height > 7 {
			return height - 7
		}
	}
	return 20
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// isQuitKey matches q, Q and Ctrl-C; raw mode swallows the signal
func isQuitKey(b byte) bool {
	return b == 'q' || b == 'Q' || b == 3
}

type topRow struct {
	snap  models.ProcessSnapshot
	trend float64
	mean  float64
}

// renderTop formats one frame of the process table
func renderTop(set *models.SnapshotSet, tracker *stats.Tracker, status *models.AgentStatus, sortBy string, limit int) string {
	rows := make([]topRow, 0, len(set.Snapshots))
	for _, s := range set.Snapshots {
		row := topRow{snap: s}
		if m, err := tracker.Metrics(s.PID, models.ChannelCPU); err == nil {
			row.trend = m.Trend
			row.mean = m.Mean
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		switch sortBy {
		case "mem":
			return rows[i].snap.Memory > rows[j].snap.Memory
		case "pid":
			return rows[i].snap.PID < rows[j].snap.PID
		case "trend":
			return rows[i].trend > rows[j].trend
		default:
			return rows[i].snap.CPUPercent > rows[j].snap.CPUPercent
		}
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "procwatch %s  host %s  processes %d  taken %s\n",
		status.Version, status.Hostname, set.Len(), set.TakenAt.Format("15:04:05"))
	fmt.Fprintln(&buf, hostLine(status.Host, set.TakenAt))
	if load := status.Load; load != nil {
		fmt.Fprintf(&buf, "cpu %.1f%%  mem %s/%s (%.1f%%)  swap %s/%s  load %.2f %.2f %.2f\n",
			load.CPUPercent, formatBytes(load.MemUsed), formatBytes(load.MemTotal), load.MemUsedPercent,
			formatBytes(load.SwapUsed), formatBytes(load.SwapTotal),
			load.Load1, load.Load5, load.Load15)
	} else {
		fmt.Fprintln(&buf)
	}
	fmt.Fprintln(&buf)

	tw := newTable(&buf)
	fmt.Fprintln(tw, "PID\tNAME\tCPU%\tAVG%\tTREND\tMEM\tSTATE\tUSER")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%+.2f\t%s\t%s\t%s\n",
			r.snap.PID, truncate(r.snap.Name, 24), r.snap.CPUPercent, r.mean, r.trend,
			formatBytes(r.snap.Memory), r.snap.State, r.snap.User)
	}
	tw.Flush()
	return buf.String()
}

// hostLine describes the machine, skipping parts that could not be read
func hostLine(h *models.HostInfo, now time.Time) string {
	if h == nil {
		return ""
	}
	var parts []string
	if platform := strings.TrimSpace(h.Platform + " " + h.KernelVersion); platform != "" {
		parts = append(parts, platform)
	}
	switch {
	case h.CPUThreads > 0 && h.CPUModel != "":
		parts = append(parts, fmt.Sprintf("%d x %s", h.CPUThreads, h.CPUModel))
	case h.CPUThreads > 0:
		parts = append(parts, fmt.Sprintf("%d cpus", h.CPUThreads))
	}
	if !h.BootTime.IsZero() && now.After(h.BootTime) {
		parts = append(parts, "up "+formatUptime(now.Sub(h.BootTime)))
	}
	return strings.Join(parts, "  ")
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncate shortens s to n runes, marking the cut with ~
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "~"
}
