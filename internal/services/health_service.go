package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"picpulse/internal/dataset"
	"picpulse/internal/infrastructure"
	"picpulse/pkg/contracts"
)

// DataStatus is what readiness needs to know about the loaded tables.
type DataStatus interface {
	Diagnostics(ctx context.Context) ([]dataset.Diagnostics, error)
	LoadedAt() time.Time
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	data      DataStatus
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// Ready reports whether the status is ready
func (s HealthStatus) Ready() bool {
	return s.Status == "ready"
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. data may be nil, in which
// case readiness reports the datasets as not loaded.
func NewHealthService(version string, data DataStatus, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = contracts.Version
	}
	logger.Info("HealthService initialized", slog.String("version", version))

	return &HealthService{
		version:   version,
		data:      data,
		startTime: time.Now(),
		logger:    infrastructure.ComponentLogger(logger, infrastructure.ComponentHealth),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports ready once every table is loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"data": hs.checkDataHealth(ctx),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.ReadRuntimeStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     stats.ProcessUptime.Seconds(),
			"go_version": runtime.Version(),
			"goroutines": stats.GoRoutines,
			"heap_alloc": stats.HeapAlloc,
			"gc_count":   stats.GCCount,
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      hs.version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// checkDataHealth checks that the tables are loaded and reports their size
func (hs *HealthService) checkDataHealth(ctx context.Context) ServiceHealth {
	if hs.data == nil {
		return ServiceHealth{Status: "not_ready", Message: ErrDataNotLoaded.Error()}
	}
	diags, err := hs.data.Diagnostics(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}

	rows := 0
	for _, d := range diags {
		rows += d.RowsKept
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d tables loaded, %d rows", len(diags), rows),
		Uptime:  time.Since(hs.data.LoadedAt()).Round(time.Second).String(),
	}
}
