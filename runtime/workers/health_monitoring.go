package workers

import (
	"context"
	"log/slog"
	"os"
	"socket-relay/contract"
	"socket-relay/domain"
	"socket-relay/observability"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically logs the registry occupancy, the relay
// counters and the resource usage of the relay process itself.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	occupancy      contract.IOccupancy
	stats          *observability.MonitoringManager
	metricInterval time.Duration
	pid            domain.PID
	sampler        func(pid domain.PID) (domain.ProcessSample, error)
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	occupancy contract.IOccupancy,
	stats *observability.MonitoringManager,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		occupancy:      occupancy,
		stats:          stats,
		metricInterval: metricInterval,
		pid:            domain.PID(os.Getpid()),
		sampler:        sampleProcess,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *HealthMonitoringWorker) report() {
	stats := w.stats.GetLatest()
	attrs := []any{
		"peers", w.occupancy.Len(),
		"available", w.occupancy.Available(),
		"capacity", w.occupancy.Capacity(),
		"broadcasts", stats.Broadcasts,
		"retired", stats.PeersRetired,
		"drain_cycles", stats.DrainCycles,
	}
	sample, err := w.sampler(w.pid)
	if err != nil {
		w.log.Debug("Error while sampling the relay process", "pid", w.pid, "err", err)
	} else {
		attrs = append(attrs, "status", sample.Status, "cpu", sample.Cpu, "rss", sample.RSS)
	}
	w.log.Info("Relay health", attrs...)
}

func sampleProcess(pid domain.PID) (domain.ProcessSample, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return domain.ProcessSample{}, err
	}
	status, err := p.Status()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return domain.ProcessSample{}, err
	}
	return domain.ProcessSample{
		PID:    pid,
		Status: domain.ToStatus(status),
		Cpu:    cpu,
		RSS:    mem.RSS,
	}, nil
}
