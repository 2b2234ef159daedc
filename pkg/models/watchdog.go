package models

import (
	"fmt"
	"time"
)

// ConditionKind discriminates Condition variants
type ConditionKind string

const (
	ConditionCPUAbove    ConditionKind = "cpu_above"
	ConditionMemAbove    ConditionKind = "mem_above"
	ConditionProcessExit ConditionKind = "process_exit"
)

// Condition is a watchdog trigger. Build it with CPUAbove, MemAbove or ProcessExit.
type Condition struct {
	Kind       ConditionKind `json:"kind" yaml:"kind"`
	CPUPercent float64       `json:"cpu_percent,omitempty" yaml:"cpu_percent,omitempty"`
	MemBytes   uint64        `json:"mem_bytes,omitempty" yaml:"mem_bytes,omitempty"`
}

// CPUAbove fires while the process CPU usage is strictly above threshold percent
func CPUAbove(threshold float64) Condition {
	return Condition{Kind: ConditionCPUAbove, CPUPercent: threshold}
}

// MemAbove fires while the process resident memory is strictly above threshold bytes
func MemAbove(threshold uint64) Condition {
	return Condition{Kind: ConditionMemAbove, MemBytes: threshold}
}

// ProcessExit fires once when the watched process disappears
func ProcessExit() Condition {
	return Condition{Kind: ConditionProcessExit}
}

// Triggered evaluates the condition against live metrics. ProcessExit never
// matches a live process.
func (c Condition) Triggered(cpu float64, mem uint64) bool {
	switch c.Kind {
	case ConditionCPUAbove:
		return cpu > c.CPUPercent
	case ConditionMemAbove:
		return mem > c.MemBytes
	case ConditionProcessExit:
		return false
	default:
		return false
	}
}

func (c Condition) String() string {
	switch c.Kind {
	case ConditionCPUAbove:
		return fmt.Sprintf("cpu > %.2f%%", c.CPUPercent)
	case ConditionMemAbove:
		return fmt.Sprintf("memory > %d bytes", c.MemBytes)
	case ConditionProcessExit:
		return "process exit"
	default:
		return fmt.Sprintf("unknown condition %q", string(c.Kind))
	}
}

// ActionKind discriminates Action variants
type ActionKind string

const (
	ActionLog    ActionKind = "log"
	ActionKill   ActionKind = "kill"
	ActionExport ActionKind = "export"
)

// Action is what the watchdog does when a condition fires. Build it with LogAction,
// KillAction or ExportAction.
type Action struct {
	Kind    ActionKind `json:"kind" yaml:"kind"`
	Message string     `json:"message,omitempty" yaml:"message,omitempty"`
	Target  string     `json:"target,omitempty" yaml:"target,omitempty"` // File path or http(s)/ws(s) URL
}

// LogAction writes message to the watchdog log
func LogAction(message string) Action {
	return Action{Kind: ActionLog, Message: message}
}

// KillAction terminates the watched process
func KillAction() Action {
	return Action{Kind: ActionKill}
}

// ExportAction sends the triggering snapshot to target
func ExportAction(target string) Action {
	return Action{Kind: ActionExport, Target: target}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionLog:
		return fmt.Sprintf("log(%q)", a.Message)
	case ActionKill:
		return "kill"
	case ActionExport:
		return fmt.Sprintf("export(%s)", a.Target)
	default:
		return fmt.Sprintf("unknown action %q", string(a.Kind))
	}
}

// Trigger records one (condition, action) firing
type Trigger struct {
	Condition Condition `json:"condition" yaml:"condition"`
	Action    Action    `json:"action" yaml:"action"`
	FiredAt   time.Time `json:"fired_at" yaml:"fired_at"`
}

// StopReason tells why an unbounded polling loop ended. Neither value is a failure.
type StopReason string

const (
	StopProcessExited StopReason = "process_exited"
	StopCancelled     StopReason = "cancelled"
)

// WatchdogReport is the outcome of one watchdog run
type WatchdogReport struct {
	ID        string        `json:"id" yaml:"id"`
	PID       int32         `json:"pid" yaml:"pid"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Ticks     int           `json:"ticks" yaml:"ticks"`
	Triggered []Trigger     `json:"triggered" yaml:"triggered"`
	Reason    StopReason    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// ExportPayload is what an Export action hands to the export collaborator
type ExportPayload struct {
	Kind      string           `json:"kind"` // "watchdog_trigger"
	Hostname  string           `json:"hostname,omitempty"`
	ReportID  string           `json:"report_id,omitempty"`
	PID       int32            `json:"pid"`
	Condition Condition        `json:"condition"`
	Snapshot  *ProcessSnapshot `json:"snapshot,omitempty"` // nil when the process exited
	FiredAt   time.Time        `json:"fired_at"`
}
