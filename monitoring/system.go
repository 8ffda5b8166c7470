package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemPromMetrics struct {
	cpuPercent  prometheus.Gauge
	memPercent  prometheus.Gauge
	diskPercent prometheus.Gauge
}

var systemMetrics = &systemPromMetrics{
	cpuPercent: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomiq_node_cpu_percent",
		Help: "Host CPU utilization percent",
	}),
	memPercent: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomiq_node_mem_percent",
		Help: "Host memory utilization percent",
	}),
	diskPercent: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atomiq_node_disk_percent",
		Help: "Utilization percent of the partition holding the data directory",
	}),
}

// CollectSystemMetrics samples host stats every interval until stop is closed.
// Run it on its own goroutine.
func CollectSystemMetrics(dataDir string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
				systemMetrics.cpuPercent.Set(percents[0])
			}
			if vm, err := mem.VirtualMemory(); err == nil {
				systemMetrics.memPercent.Set(vm.UsedPercent)
			}
			if du, err := disk.Usage(dataDir); err == nil {
				systemMetrics.diskPercent.Set(du.UsedPercent)
			}
		}
	}
}
