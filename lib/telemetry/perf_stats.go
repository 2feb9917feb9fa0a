package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("govdata.perf_stats")

var (
	cpuGauge, _ = meter.Float64Gauge(
		"process.cpu.utilization",
		metric.WithDescription("Host cpu usage sampled during a run."),
		metric.WithUnit("%"),
	)
	memoryGauge, _ = meter.Int64Gauge(
		"process.memory.allocated",
		metric.WithDescription("Heap allocated by the process."),
		metric.WithUnit("MB"),
	)
	liveObjectsGauge, _ = meter.Int64Gauge("process.heap.objects", metric.WithUnit("{object}"))
	goroutineGauge, _   = meter.Int64Gauge("process.goroutines", metric.WithUnit("{goroutine}"))
)

// InstrumentPerfStats samples process statistics every interval until ctx is
// done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, interval/2, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
