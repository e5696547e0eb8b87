package workers

import (
	"context"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/observability"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker samples the process footprint next to the room count,
// which is the number that grows when rooms are never evicted.
type TelemetryWorker struct {
	log            *slog.Logger
	store          contract.IRoomStore
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
}

func NewTelemetryWorker(
	log *slog.Logger,
	store contract.IRoomStore,
	monitoring *observability.MonitoringManager,
	metricInterval time.Duration,
) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		store:          store,
		monitoring:     monitoring,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			stats, err := sample(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			stats.Rooms = w.store.Len()
			w.monitoring.UpdateProcess(stats)
		}
	}
}

// sample retrieves memory and CPU usage of the given process.
func sample(p *process.Process) (observability.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		RamBytes:   memInfo.RSS,
		CpuPercent: cpuPercent,
		SampledAt:  time.Now().UTC(),
	}, nil
}
