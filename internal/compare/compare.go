// Package compare matches snapshot sets by pid and reports signed deltas.
package compare

import (
	"fmt"
	"sort"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/internal/snapfile"
	"github.com/monify-labs/procwatch/pkg/models"
)

// Compare returns one delta per pid in the union of old and latest. Pids present
// in latest come first in its order, followed by the pids that disappeared in
// old's order. When a pid repeats within one input the first entry is used.
func Compare(old, latest []models.ProcessSnapshot) []models.ProcessDelta {
	before := index(old)
	deltas := make([]models.ProcessDelta, 0, len(latest)+len(old))
	seen := make(map[int32]struct{}, len(latest))

	for _, cur := range latest {
		if _, dup := seen[cur.PID]; dup {
			continue
		}
		seen[cur.PID] = struct{}{}

		prev, ok := before[cur.PID]
		if !ok {
			deltas = append(deltas, models.ProcessDelta{
				PID:       cur.PID,
				Name:      cur.Name,
				Kind:      models.DeltaAppeared,
				CPUAfter:  cur.CPUPercent,
				CPUDelta:  cur.CPUPercent,
				MemAfter:  cur.Memory,
				MemDelta:  int64(cur.Memory),
			})
			continue
		}

		deltas = append(deltas, models.ProcessDelta{
			PID:       cur.PID,
			Name:      cur.Name,
			Kind:      models.DeltaChanged,
			CPUBefore: prev.CPUPercent,
			CPUAfter:  cur.CPUPercent,
			CPUDelta:  cur.CPUPercent - prev.CPUPercent,
			MemBefore: prev.Memory,
			MemAfter:  cur.Memory,
			MemDelta:  int64(cur.Memory) - int64(prev.Memory),
		})
	}

	for _, prev := range old {
		if _, ok := seen[prev.PID]; ok {
			continue
		}
		seen[prev.PID] = struct{}{}

		deltas = append(deltas, models.ProcessDelta{
			PID:       prev.PID,
			Name:      prev.Name,
			Kind:      models.DeltaDisappeared,
			CPUBefore: prev.CPUPercent,
			CPUDelta:  -prev.CPUPercent,
			MemBefore: prev.Memory,
			MemDelta:  -int64(prev.Memory),
		})
	}

	return deltas
}

func index(snaps []models.ProcessSnapshot) map[int32]models.ProcessSnapshot {
	m := make(map[int32]models.ProcessSnapshot, len(snaps))
	for _, s := range snaps {
		if _, ok := m[s.PID]; !ok {
			m[s.PID] = s
		}
	}
	return m
}

// Latest compares the two most recent sets by TakenAt. Sets with equal
// timestamps keep their input order, so a later position counts as newer.
func Latest(sets []models.SnapshotSet) ([]models.ProcessDelta, error) {
	if len(sets) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 snapshot sets, got %d", errs.ErrValidation, len(sets))
	}

	ordered := append([]models.SnapshotSet(nil), sets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TakenAt.Before(ordered[j].TakenAt)
	})

	n := len(ordered)
	return Compare(ordered[n-2].Snapshots, ordered[n-1].Snapshots), nil
}

// Files loads the recorded sets in paths and compares the two most recent
func Files(paths ...string) ([]models.ProcessDelta, error) {
	sets, err := snapfile.LoadAll(paths...)
	if err != nil {
		return nil, err
	}
	return Latest(sets)
}

// Summary totals a list of deltas
type Summary struct {
	Appeared    int     `json:"appeared" yaml:"appeared"`
	Disappeared int     `json:"disappeared" yaml:"disappeared"`
	Changed     int     `json:"changed" yaml:"changed"`
	Unchanged   int     `json:"unchanged" yaml:"unchanged"`
	NetCPU      float64 `json:"net_cpu" yaml:"net_cpu"`
	NetMemory   int64   `json:"net_memory" yaml:"net_memory"`
}

// Summarize counts deltas by kind and sums the cpu and memory deltas
func Summarize(deltas []models.ProcessDelta) Summary {
	var s Summary
	for _, d := range deltas {
		switch d.Kind {
		case models.DeltaAppeared:
			s.Appeared++
		case models.DeltaDisappeared:
			s.Disappeared++
		case models.DeltaChanged:
			if d.CPUDelta == 0 && d.MemDelta == 0 {
				s.Unchanged++
			} else {
				s.Changed++
			}
		}
		s.NetCPU += d.CPUDelta
		s.NetMemory += d.MemDelta
	}
	return s
}
