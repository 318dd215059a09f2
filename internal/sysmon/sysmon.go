// Package sysmon samples host health for wardragon status reports. The
// synthetic monitor fabricates plausible readings; the host monitor reads
// the real machine through gopsutil.
package sysmon

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/signalsfoundry/dragonsim/model"
)

const (
	syntheticMemoryTotalMB = 8192 * 1024
	syntheticDiskTotalMB   = 512000 * 1024
)

// SyntheticMonitor fabricates health samples without touching the host.
// Uptime counts from the provided start time.
type SyntheticMonitor struct {
	start time.Time
}

// NewSyntheticMonitor returns a monitor whose uptime is measured from start.
// A zero start means "now".
func NewSyntheticMonitor(start time.Time) *SyntheticMonitor {
	if start.IsZero() {
		start = time.Now()
	}
	return &SyntheticMonitor{start: start}
}

// Stats returns one fabricated sample.
func (m *SyntheticMonitor) Stats() (model.SystemStats, error) {
	return model.SystemStats{
		CPUPercent:        round1(rand.Float64() * 100),
		MemoryTotalMB:     syntheticMemoryTotalMB,
		MemoryAvailableMB: round2(uniform(syntheticMemoryTotalMB*0.3, syntheticMemoryTotalMB*0.8)),
		DiskTotalMB:       syntheticDiskTotalMB,
		DiskUsedMB:        round2(uniform(syntheticDiskTotalMB*0.1, syntheticDiskTotalMB*0.9)),
		TemperatureC:      round1(uniform(30, 70)),
		PlutoTempC:        round1(uniform(40, 60)),
		ZynqTempC:         round1(uniform(35, 55)),
		UptimeSec:         int64(time.Since(m.start).Seconds()),
	}, nil
}

// HostMonitor samples real host health through gopsutil. The Pluto and Zynq
// temperatures come from SDR hardware an ordinary host does not have, so
// those stay synthetic.
type HostMonitor struct {
	diskPath string
}

// NewHostMonitor returns a monitor that reports disk usage for the root
// filesystem.
func NewHostMonitor() *HostMonitor {
	return &HostMonitor{diskPath: "/"}
}

// Stats returns one sample of the real host.
func (m *HostMonitor) Stats() (model.SystemStats, error) {
	const mb = 1024 * 1024

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("sample cpu: %w", err)
	}
	cpuPct := 0.0
	if len(percents) > 0 {
		cpuPct = round1(percents[0])
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("sample memory: %w", err)
	}
	du, err := disk.Usage(m.diskPath)
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("sample disk %s: %w", m.diskPath, err)
	}
	uptime, err := host.Uptime()
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("sample uptime: %w", err)
	}

	stats := model.SystemStats{
		CPUPercent:        cpuPct,
		MemoryTotalMB:     round2(float64(vm.Total) / mb),
		MemoryAvailableMB: round2(float64(vm.Available) / mb),
		DiskTotalMB:       round2(float64(du.Total) / mb),
		DiskUsedMB:        round2(float64(du.Used) / mb),
		TemperatureC:      round1(uniform(30, 70)),
		PlutoTempC:        round1(uniform(40, 60)),
		ZynqTempC:         round1(uniform(35, 55)),
		UptimeSec:         int64(uptime),
	}

	if temps, err := host.SensorsTemperatures(); err == nil {
		for _, s := range temps {
			if s.Temperature > 0 {
				stats.TemperatureC = round1(s.Temperature)
				break
			}
		}
	}

	return stats, nil
}

func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
