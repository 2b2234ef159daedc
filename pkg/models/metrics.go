package models

import (
	"fmt"
	"strings"
	"time"
)

// Channel names one metric series kept in a rolling window
type Channel int

const (
	ChannelCPU Channel = iota
	ChannelMemory
	ChannelDiskRead
	ChannelDiskWrite
)

// Channels lists every channel in display order
var Channels = []Channel{ChannelCPU, ChannelMemory, ChannelDiskRead, ChannelDiskWrite}

func (c Channel) String() string {
	switch c {
	case ChannelCPU:
		return "cpu"
	case ChannelMemory:
		return "memory"
	case ChannelDiskRead:
		return "disk_read"
	case ChannelDiskWrite:
		return "disk_write"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// ParseChannel converts a channel name ("cpu", "mem", "read", ...) to a Channel
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return ChannelCPU, nil
	case "memory", "mem":
		return ChannelMemory, nil
	case "disk_read", "read":
		return ChannelDiskRead, nil
	case "disk_write", "write":
		return ChannelDiskWrite, nil
	default:
		return 0, fmt.Errorf("unknown channel %q (want cpu, memory, disk_read, disk_write)", s)
	}
}

// StatisticalMetrics summarizes the retained values of one channel
type StatisticalMetrics struct {
	Mean         float64  `json:"mean" yaml:"mean"`
	Median       float64  `json:"median" yaml:"median"`
	StdDev       float64  `json:"std_dev" yaml:"std_dev"` // Population
	Min          float64  `json:"min" yaml:"min"`
	Max          float64  `json:"max" yaml:"max"`
	Percentile95 *float64 `json:"percentile_95,omitempty" yaml:"percentile_95,omitempty"`
	Skewness     *float64 `json:"skewness,omitempty" yaml:"skewness,omitempty"`
	Trend        float64  `json:"trend" yaml:"trend"`       // Regression slope per sample
	Forecast     float64  `json:"forecast" yaml:"forecast"` // Next predicted value
	Samples      int      `json:"samples" yaml:"samples"`
}

// AgentStatus reports the state of the background updater
type AgentStatus struct {
	Hostname        string      `json:"hostname"`
	Host            *HostInfo   `json:"host,omitempty"`
	Version         string      `json:"version"`
	Uptime          uint64      `json:"uptime"`
	LastEnumeration time.Time   `json:"last_enumeration"`
	LastPublish     time.Time   `json:"last_publish"`
	PublishCount    uint64      `json:"publish_count"`
	ErrorCount      uint64      `json:"error_count"`
	TrackedPIDs     int         `json:"tracked_pids"`
	Load            *SystemLoad `json:"load,omitempty"`
	Status          string      `json:"status"` // "running", "stopped"
}

// HostInfo identifies the machine processes are sampled on
type HostInfo struct {
	Hostname      string    `json:"hostname" yaml:"hostname"`
	Platform      string    `json:"platform" yaml:"platform"`
	KernelVersion string    `json:"kernel_version" yaml:"kernel_version"`
	BootTime      time.Time `json:"boot_time" yaml:"boot_time"`
	CPUModel      string    `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads    int       `json:"cpu_threads" yaml:"cpu_threads"`
}

// SystemLoad is a machine-wide usage reading shown alongside process data
type SystemLoad struct {
	CPUPercent     float64 `json:"cpu_percent" yaml:"cpu_percent"`
	MemTotal       uint64  `json:"mem_total" yaml:"mem_total"`
	MemUsed        uint64  `json:"mem_used" yaml:"mem_used"`
	MemUsedPercent float64 `json:"mem_used_percent" yaml:"mem_used_percent"`
	SwapTotal      uint64  `json:"swap_total" yaml:"swap_total"`
	SwapUsed       uint64  `json:"swap_used" yaml:"swap_used"`
	Load1          float64 `json:"load_1m" yaml:"load_1m"`
	Load5          float64 `json:"load_5m" yaml:"load_5m"`
	Load15         float64 `json:"load_15m" yaml:"load_15m"`
}
