package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

// render writes v as JSON or YAML, or calls table for text output
func (a *app) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := newTable(w)
		table(tw)
		return tw.Flush()
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func snapshotHeader(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "PID\tNAME\tCPU%\tMEM\tVIRT\tREAD\tWRITE\tSTATE\tPPID\tUSER")
}

func snapshotRow(tw *tabwriter.Writer, s models.ProcessSnapshot) {
	fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		s.PID, s.Name, s.CPUPercent,
		formatBytes(s.Memory), formatBytes(s.Virtual),
		formatBytes(s.ReadBytes), formatBytes(s.WriteBytes),
		s.State, s.ParentPID, s.User)
}

func deltaRow(tw *tabwriter.Writer, d models.ProcessDelta) {
	fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%+.1f\t%s\t%s\t%s\n",
		d.PID, d.Name, d.Kind,
		d.CPUBefore, d.CPUAfter, d.CPUDelta,
		formatBytes(d.MemBefore), formatBytes(d.MemAfter), formatSignedBytes(d.MemDelta))
}

func metricsRow(tw *tabwriter.Writer, ch models.Channel, m models.StatisticalMetrics) {
	fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\t%+.3f\t%.2f\n",
		ch, m.Samples, m.Mean, m.Median, m.StdDev, m.Min, m.Max,
		optional(m.Percentile95), optional(m.Skewness), m.Trend, m.Forecast)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes renders n with a binary unit suffix
func formatBytes(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%dB", n)
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f%s", v, byteUnits[i])
}

func formatSignedBytes(n int64) string {
	if n < 0 {
		return "-" + formatBytes(uint64(-n))
	}
	return "+" + formatBytes(uint64(n))
}

// parseBytes accepts a plain byte count or a number with a K, M, G or T
// suffix (optionally followed by B or iB); all suffixes are powers of 1024
func parseBytes(s string) (uint64, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	in = strings.TrimSuffix(in, "IB")
	in = strings.TrimSuffix(in, "B")

	mult := uint64(1)
	if in != "" {
		switch in[len(in)-1] {
		case 'K':
			mult = 1 << 10
		case 'M':
			mult = 1 << 20
		case 'G':
			mult = 1 << 30
		case 'T':
			mult = 1 << 40
		}
		if mult != 1 {
			in = in[:len(in)-1]
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid size %q", errs.ErrValidation, s)
	}
	return uint64(v * float64(mult)), nil
}

// parsePIDs converts command arguments to pids
func parsePIDs(args []string) ([]int32, error) {
	pids := make([]int32, 0, len(args))
	for _, arg := range args {
		pid, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 32)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("%w: invalid pid %q", errs.ErrValidation, arg)
		}
		pids = append(pids, int32(pid))
	}
	return pids, nil
}
