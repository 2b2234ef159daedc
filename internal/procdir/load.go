package procdir

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/monify-labs/procwatch/pkg/models"
)

// CollectSystemLoad reads machine-wide CPU, memory, swap and load averages. CPU
// usage is measured since the previous call, so the first reading after
// start may be 0. Parts that cannot be read are left zero.
func CollectSystemLoad(ctx context.Context) (*models.SystemLoad, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.SystemLoad{
		MemTotal:       vm.Total,
		MemUsed:        vm.Used,
		MemUsedPercent: vm.UsedPercent,
	}

	if percentages, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percentages) > 0 {
		result.CPUPercent = percentages[0]
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		result.SwapTotal = swap.Total
		result.SwapUsed = swap.Used
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		result.Load1 = avg.Load1
		result.Load5 = avg.Load5
		result.Load15 = avg.Load15
	}

	return result, nil
}
