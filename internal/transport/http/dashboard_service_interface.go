package http

import (
	"context"
	"io"

	"picpulse/internal/analytics"
	"picpulse/internal/dataset"
	"picpulse/internal/report"
	"picpulse/internal/services"
	"picpulse/pkg/contracts/domain"
)

// DashboardServiceInterface is what the dashboard and report handlers need
// from services.DashboardService.
type DashboardServiceInterface interface {
	Options(ctx context.Context) (analytics.FilterOptions, error)
	Diagnostics(ctx context.Context) ([]dataset.Diagnostics, error)
	CEO(ctx context.Context, f analytics.Filters) (*services.CEODashboard, error)
	CFO(ctx context.Context, f analytics.Filters) (*services.CFODashboard, error)
	Projections(ctx context.Context, p analytics.ProjectionParams) (*analytics.Projection, error)
	Report(ctx context.Context, role domain.ReportRole, f analytics.Filters) (*report.Report, error)
	WriteReportXLSX(ctx context.Context, w io.Writer, role domain.ReportRole, f analytics.Filters) error
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
