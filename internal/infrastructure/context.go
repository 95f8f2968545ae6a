package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey namespaces the values the log handler lifts from a context.
type contextKey string

const (
	traceIDKey    contextKey = "trace_id"
	reportRoleKey contextKey = "report_role"
)

// Component names a subsystem in the "component" field of log records.
type Component string

const (
	ComponentDatasetLoader Component = "dataset_loader"
	ComponentDashboard     Component = "dashboard_service"
	ComponentHealth        Component = "health_service"
	ComponentReport        Component = "report"
	ComponentExporter      Component = "exporter"
	ComponentReportgen     Component = "reportgen"
)

// ComponentLogger tags logger with c. A nil logger falls back to the slog
// default.
func ComponentLogger(logger *slog.Logger, c Component) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", string(c)))
}

// WithTraceID stores the request or run id that log records carry as trace_id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the id stored by WithTraceID, or "".
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// EnsureTraceID gives ctx a fresh UUID trace id unless it already has one.
// Batch runs use it so every record of one report run can be correlated.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithReportRole marks ctx as building the report of role. Records logged
// with it carry report_role.
func WithReportRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, reportRoleKey, role)
}

// ReportRole returns the role stored by WithReportRole, or "".
func ReportRole(ctx context.Context) string {
	role, _ := ctx.Value(reportRoleKey).(string)
	return role
}
