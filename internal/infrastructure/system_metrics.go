package infrastructure

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a snapshot of the Go runtime
type RuntimeStats struct {
	GoRoutines    int           `json:"goroutines"`
	HeapAlloc     uint64        `json:"heap_alloc_bytes"`
	HeapSys       uint64        `json:"heap_sys_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime"`
}

// ReadRuntimeStats samples the runtime. startTime is the process start.
func ReadRuntimeStats(startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoRoutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
		HeapSys:       mem.HeapSys,
		GCCount:       mem.NumGC,
		LastGCPause:   time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(startTime),
	}
}

// RegisterRuntimeGauges exposes goroutines, heap and uptime as observable
// gauges sampled at collection time.
func RegisterRuntimeGauges(meter metric.Meter, startTime time.Time) error {
	goroutines, err1 := meter.Int64ObservableGauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	heap, err2 := meter.Int64ObservableGauge("system_heap_alloc_bytes",
		metric.WithDescription("Heap bytes allocated and in use"),
		metric.WithUnit("By"))
	uptime, err3 := meter.Float64ObservableGauge("system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	if err := errors.Join(err1, err2, err3); err != nil {
		return err
	}

	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := ReadRuntimeStats(startTime)
		o.ObserveInt64(goroutines, int64(stats.GoRoutines))
		o.ObserveInt64(heap, int64(stats.HeapAlloc))
		o.ObserveFloat64(uptime, stats.ProcessUptime.Seconds())
		return nil
	}, goroutines, heap, uptime)
	return err
}
