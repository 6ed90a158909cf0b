package status

import (
	"context"
	"errors"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// OSMetrics is the host data the status view needs. Zero values mean
// "not collected".
type OSMetrics struct {
	LoadAvg1          float64
	CPUCores          int
	UsedBytes         uint64
	TotalBytes        uint64
	HostUptimeSeconds uint64
}

type MetricsSource interface {
	Collect(ctx context.Context) (OSMetrics, error)
}

// HostMetrics reads the local host through gopsutil. Collect returns
// whatever it managed to read along with the joined errors of the rest.
type HostMetrics struct{}

func (HostMetrics) Collect(ctx context.Context) (OSMetrics, error) {
	var m OSMetrics
	var errs []error

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.LoadAvg1 = avg.Load1
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, err)
	} else {
		m.CPUCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.UsedBytes = vm.Used
		m.TotalBytes = vm.Total
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		m.HostUptimeSeconds = up
	}

	return m, errors.Join(errs...)
}

// CPUPercent is a load-average proxy, not true utilization.
func CPUPercent(load1 float64, cores int) int {
	if cores <= 0 || load1 <= 0 {
		return 0
	}
	return int(math.Min(100, math.Round(load1/float64(cores)*100)))
}

func MemoryPercent(used, total uint64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(total) * 100))
}
