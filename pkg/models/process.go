package models

import "time"

// ProcessSnapshot is one point-in-time measurement of a process's resource usage
type ProcessSnapshot struct {
	PID        int32     `json:"pid" yaml:"pid"`
	Name       string    `json:"name" yaml:"name"`
	CPUPercent float64   `json:"cpu_percent" yaml:"cpu_percent"` // Since previous observation, 100 = one core
	Memory     uint64    `json:"memory" yaml:"memory"`           // Resident set size in bytes
	Virtual    uint64    `json:"virtual_memory" yaml:"virtual_memory"`
	ReadBytes  uint64    `json:"disk_read_bytes" yaml:"disk_read_bytes"`   // Cumulative
	WriteBytes uint64    `json:"disk_write_bytes" yaml:"disk_write_bytes"` // Cumulative
	State      string    `json:"state" yaml:"state"`                       // running, sleep, zombie, etc.
	ParentPID  int32     `json:"parent_pid" yaml:"parent_pid"`
	User       string    `json:"user,omitempty" yaml:"user,omitempty"`
	StartTime  time.Time `json:"start_time" yaml:"start_time"`
	SampledAt  time.Time `json:"sampled_at" yaml:"sampled_at"`
}

// SnapshotSet is the result of one full enumeration. It holds at most one entry per pid.
type SnapshotSet struct {
	ID        string            `json:"id" yaml:"id"`
	TakenAt   time.Time         `json:"taken_at" yaml:"taken_at"`
	Snapshots []ProcessSnapshot `json:"snapshots" yaml:"snapshots"`
}

// Len returns the number of snapshots in the set
func (s *SnapshotSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Snapshots)
}

// PIDs returns the set's pids in iteration order
func (s *SnapshotSet) PIDs() []int32 {
	if s == nil {
		return nil
	}
	pids := make([]int32, 0, len(s.Snapshots))
	for _, snap := range s.Snapshots {
		pids = append(pids, snap.PID)
	}
	return pids
}

// DeltaKind tells how a pid moved between two snapshot sets
type DeltaKind string

const (
	DeltaChanged     DeltaKind = "changed"
	DeltaAppeared    DeltaKind = "appeared"
	DeltaDisappeared DeltaKind = "disappeared"
)

// ProcessDelta is the signed difference between two observations of the same pid
type ProcessDelta struct {
	PID       int32     `json:"pid" yaml:"pid"`
	Name      string    `json:"name" yaml:"name"`
	Kind      DeltaKind `json:"kind" yaml:"kind"`
	CPUBefore float64   `json:"cpu_before" yaml:"cpu_before"`
	CPUAfter  float64   `json:"cpu_after" yaml:"cpu_after"`
	CPUDelta  float64   `json:"cpu_delta" yaml:"cpu_delta"`
	MemBefore uint64    `json:"mem_before" yaml:"mem_before"`
	MemAfter  uint64    `json:"mem_after" yaml:"mem_after"`
	MemDelta  int64     `json:"mem_delta" yaml:"mem_delta"`
}
