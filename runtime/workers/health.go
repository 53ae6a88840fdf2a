package workers

import (
	"context"
	"log/slog"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker periodically logs the process's own resource usage. It is
// observability for a single node; nothing is reported anywhere else.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			cpu, _ := p.CPUPercent()

			w.log.Info("Health",
				"rss_mb", memInfo.RSS/1024/1024,
				"cpu_percent", cpu,
				"goroutines", goruntime.NumGoroutine())
		}
	}
}
