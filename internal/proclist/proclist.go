// Package proclist filters, orders and groups one enumeration of processes
// for listing.
package proclist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/monify-labs/procwatch/internal/errs"
	"github.com/monify-labs/procwatch/pkg/models"
)

// Filter keeps processes whose name and user contain the given substrings.
// Empty fields match everything.
type Filter struct {
	Name string
	User string
}

// Match reports whether s passes the filter
func (f Filter) Match(s models.ProcessSnapshot) bool {
	if f.Name != "" && !strings.Contains(s.Name, f.Name) {
		return false
	}
	if f.User != "" && !strings.Contains(s.User, f.User) {
		return false
	}
	return true
}

// SortKey orders a process list
type SortKey string

const (
	SortCPU    SortKey = "cpu"
	SortMemory SortKey = "memory"
	SortName   SortKey = "name"
	SortUser   SortKey = "user"
	SortPID    SortKey = "pid"
)

// ParseSortKey accepts cpu, memory (mem, ram), name, user and pid
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return SortCPU, nil
	case "memory", "mem", "ram":
		return SortMemory, nil
	case "name":
		return SortName, nil
	case "user":
		return SortUser, nil
	case "pid":
		return SortPID, nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q (want cpu, memory, name, user or pid)", errs.ErrValidation, s)
	}
}

// Select filters snaps, orders them by key and keeps the first top entries
// (all of them when top is 0). cpu and memory sort descending, the rest
// ascending; ties fall back to pid order. snaps is not modified.
func Select(snaps []models.ProcessSnapshot, f Filter, key SortKey, top int) ([]models.ProcessSnapshot, error) {
	if top < 0 {
		return nil, fmt.Errorf("%w: top must be >= 0, got %d", errs.ErrValidation, top)
	}

	rows := make([]models.ProcessSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if f.Match(s) {
			rows = append(rows, s)
		}
	}

	less, err := lessFor(key)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if less(rows[i], rows[j]) {
			return true
		}
		if less(rows[j], rows[i]) {
			return false
		}
		return rows[i].PID < rows[j].PID
	})

	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	return rows, nil
}

func lessFor(key SortKey) (func(a, b models.ProcessSnapshot) bool, error) {
	switch key {
	case SortCPU:
		return func(a, b models.ProcessSnapshot) bool { return a.CPUPercent > b.CPUPercent }, nil
	case SortMemory:
		return func(a, b models.ProcessSnapshot) bool { return a.Memory > b.Memory }, nil
	case SortName:
		return func(a, b models.ProcessSnapshot) bool { return a.Name < b.Name }, nil
	case SortUser:
		return func(a, b models.ProcessSnapshot) bool { return a.User < b.User }, nil
	case SortPID:
		return func(a, b models.ProcessSnapshot) bool { return a.PID < b.PID }, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", errs.ErrValidation, key)
	}
}

// Member is one process of a family with its distance from the root
type Member struct {
	models.ProcessSnapshot `yaml:",inline"`
	Depth                  int `json:"depth" yaml:"depth"`
}

// Family returns the process pid followed by all of its descendants in
// depth-first order, children by ascending pid. A pid missing from snaps
// yields errs.ErrNotFound.
func Family(snaps []models.ProcessSnapshot, pid int32) ([]Member, error) {
	byPID := make(map[int32]models.ProcessSnapshot, len(snaps))
	children := make(map[int32][]int32)
	for _, s := range snaps {
		if _, dup := byPID[s.PID]; dup {
			continue
		}
		byPID[s.PID] = s
		if s.ParentPID != s.PID {
			children[s.ParentPID] = append(children[s.ParentPID], s.PID)
		}
	}

	root, ok := byPID[pid]
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, errs.ErrNotFound)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}

	family := []Member{}
	visited := make(map[int32]bool)
	var walk func(s models.ProcessSnapshot, depth int)
	walk = func(s models.ProcessSnapshot, depth int) {
		// parent links can loop after pid reuse
		if visited[s.PID] {
			return
		}
		visited[s.PID] = true
		family = append(family, Member{ProcessSnapshot: s, Depth: depth})
		for _, child := range children[s.PID] {
			walk(byPID[child], depth+1)
		}
	}
	walk(root, 0)
	return family, nil
}
