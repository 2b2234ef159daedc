package procdir

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/monify-labs/procwatch/pkg/models"
)

// CollectHostInfo gathers hostname, platform, boot time and CPU details. The
// hostname falls back to os.Hostname when gopsutil cannot read host
// information; CPU fields stay empty when unavailable.
func CollectHostInfo(ctx context.Context) models.HostInfo {
	var result models.HostInfo

	if info, err := host.InfoWithContext(ctx); err == nil {
		result.Hostname = info.Hostname
		result.Platform = info.Platform
		result.KernelVersion = info.KernelVersion
		result.BootTime = time.Unix(int64(info.BootTime), 0)
	} else {
		result.Hostname, _ = os.Hostname()
	}

	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		result.CPUThreads = threads
	}
	// Model from the first CPU (usually all are the same)
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		result.CPUModel = infos[0].ModelName
	}

	return result
}
