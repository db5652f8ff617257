package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the running server process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

// SelfStats retrieves memory, CPU and OS status of the current process.
func SelfStats() (ProcessStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, err
	}
	return statsOf(p)
}

func statsOf(p *process.Process) (ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}

	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}

	return ProcessStats{
		PID:        p.Pid,
		Status:     status,
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Goroutines: goruntime.NumGoroutine(),
	}, nil
}

// HeartbeatWorker periodically logs the registry occupancy and the process health.
type HeartbeatWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, registry: registry, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	registryStats := w.registry.Stats()
	stats, err := statsOf(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "error", err)
		return
	}
	w.log.Info("Heartbeat",
		"online_users", registryStats.OnlineUsers,
		"connections", registryStats.Connections,
		"rss_bytes", stats.RSSBytes,
		"cpu_percent", stats.CPUPercent,
		"goroutines", stats.Goroutines,
	)
}
