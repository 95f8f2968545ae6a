package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"picpulse/internal/analytics"
	"picpulse/internal/dataset"
	"picpulse/internal/exporter"
	"picpulse/internal/infrastructure"
	"picpulse/internal/report"
	"picpulse/pkg/contracts/domain"
)

var tracer = otel.Tracer("picpulse/services")

// CEODashboard is the CEO view: KPIs plus the six redemption aggregates.
type CEODashboard struct {
	Filters          domain.ReportFilters `json:"filters"`
	KPIs             analytics.CEOKPIs    `json:"kpis"`
	Segments         analytics.Series     `json:"resgates_segmento"`
	Weekdays         analytics.Series     `json:"resgates_dia_semana"`
	HourHeatmap      analytics.Pivot      `json:"heatmap_hora_categoria"`
	AgeByCouponType  analytics.Pivot      `json:"faixa_etaria_tipo_cupom"`
	SegmentByType    analytics.Pivot      `json:"segmento_tipo_cupom"`
	DevicesWithApp   analytics.Series     `json:"dispositivos_app"`
	ProcessingTimeMS int64                `json:"processing_time_ms"`
}

// CFODashboard is the CFO view: KPIs plus the four revenue aggregates.
type CFODashboard struct {
	Filters          domain.ReportFilters `json:"filters"`
	KPIs             analytics.CFOKPIs    `json:"kpis"`
	RevenueBySegment analytics.Series     `json:"receita_segmento"`
	CouponVsPurchase analytics.Scatter    `json:"cupom_x_compra"`
	TicketByStore    analytics.Series     `json:"ticket_medio_loja"`
	ValueHistogram   analytics.Histogram  `json:"distribuicao_valor_cupom"`
	ProcessingTimeMS int64                `json:"processing_time_ms"`
}

// DashboardService answers dashboard queries and builds reports over one
// immutable set of tables.
type DashboardService struct {
	tables   *dataset.Tables
	builder  *report.Builder
	workbook *exporter.WorkbookWriter
	bins     int
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// DashboardOption configures a DashboardService.
type DashboardOption func(*DashboardService)

// WithHistogramBins sets the bin count of the CFO coupon value histogram.
func WithHistogramBins(n int) DashboardOption {
	return func(s *DashboardService) {
		if n > 0 {
			s.bins = n
		}
	}
}

// WithBusinessMetrics records aggregation timings on m.
func WithBusinessMetrics(m *infrastructure.BusinessMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithWorkbookWriter replaces the XLSX writer.
func WithWorkbookWriter(w *exporter.WorkbookWriter) DashboardOption {
	return func(s *DashboardService) { s.workbook = w }
}

// NewDashboardService creates a dashboard service over the builder's tables.
func NewDashboardService(builder *report.Builder, logger *slog.Logger, opts ...DashboardOption) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DashboardService{
		builder: builder,
		bins:    analytics.DefaultHistogramBins,
		logger:  infrastructure.ComponentLogger(logger, infrastructure.ComponentDashboard),
	}
	if builder != nil {
		s.tables = builder.Tables()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workbook == nil {
		s.workbook = exporter.NewWorkbookWriter(nil, logger)
	}
	return s
}

// Loaded reports whether tables are available.
func (s *DashboardService) Loaded() bool {
	return s.tables != nil
}

// LoadedAt returns when the tables were loaded, or the zero time.
func (s *DashboardService) LoadedAt() time.Time {
	if s.tables == nil {
		return time.Time{}
	}
	return s.tables.LoadedAt()
}

func (s *DashboardService) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tables == nil {
		return ErrDataNotLoaded
	}
	return nil
}

// Options returns the values the filter controls can offer.
func (s *DashboardService) Options(ctx context.Context) (analytics.FilterOptions, error) {
	if err := s.ready(ctx); err != nil {
		return analytics.FilterOptions{}, err
	}
	return analytics.BuildFilterOptions(s.tables), nil
}

// Diagnostics returns the per-table load diagnostics.
func (s *DashboardService) Diagnostics(ctx context.Context) ([]dataset.Diagnostics, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.tables.Diagnostics(), nil
}

// CEO computes the CEO dashboard for f.
func (s *DashboardService) CEO(ctx context.Context, f analytics.Filters) (*CEODashboard, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "dashboard.CEO")
	defer span.End()

	start := time.Now()
	t := s.tables
	d := &CEODashboard{Filters: reportFilters(f)}
	err := aggregate(ctx,
		func() { d.KPIs = analytics.ComputeCEOKPIs(t, f) },
		func() { d.Segments = analytics.RedemptionsBySegment(t, f) },
		func() { d.Weekdays = analytics.RedemptionsByWeekday(t, f) },
		func() { d.HourHeatmap = analytics.HourCategoryHeatmap(t, f) },
		func() { d.AgeByCouponType = analytics.AgeBracketByCouponType(t, f) },
		func() { d.SegmentByType = analytics.SegmentByCouponType(t, f) },
		func() { d.DevicesWithApp = analytics.DevicesWithApp(t) },
	)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.ProcessingTimeMS = elapsed.Milliseconds()
	s.recordAggregation(ctx, span, "ceo", elapsed, f)
	return d, nil
}

// CFO computes the CFO dashboard for f.
func (s *DashboardService) CFO(ctx context.Context, f analytics.Filters) (*CFODashboard, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "dashboard.CFO")
	defer span.End()

	start := time.Now()
	t := s.tables
	d := &CFODashboard{Filters: reportFilters(f)}
	err := aggregate(ctx,
		func() { d.KPIs = analytics.ComputeCFOKPIs(t, f) },
		func() { d.RevenueBySegment = analytics.RevenueBySegment(t, f) },
		func() { d.CouponVsPurchase = analytics.CouponVsPurchase(t, f) },
		func() { d.TicketByStore = analytics.AveragePurchaseByStore(t, f) },
		func() { d.ValueHistogram = analytics.CouponValueHistogram(t, f, s.bins) },
	)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.ProcessingTimeMS = elapsed.Milliseconds()
	s.recordAggregation(ctx, span, "cfo", elapsed, f)
	return d, nil
}

// Projections simulates growth from the historical baseline. Invalid
// parameters wrap ErrInvalidInput; no dated history yields analytics.ErrNoHistory.
func (s *DashboardService) Projections(ctx context.Context, p analytics.ProjectionParams) (*analytics.Projection, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "dashboard.Projections",
		trace.WithAttributes(attribute.Int("projection.horizon_months", p.HorizonMonths)))
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	start := time.Now()
	base, err := analytics.HistoricalBaseline(s.tables)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proj, err := analytics.Project(base, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.recordAggregation(ctx, span, "projections", time.Since(start), analytics.Filters{})
	return &proj, nil
}

// Report builds the report of role under f.
func (s *DashboardService) Report(ctx context.Context, role domain.ReportRole, f analytics.Filters) (*report.Report, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rep, err := s.builder.Build(ctx, role, f)
	switch {
	case errors.Is(err, report.ErrUnknownRole):
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	case errors.Is(err, report.ErrNotLoaded):
		return nil, ErrDataNotLoaded
	case err != nil:
		return nil, err
	}
	return rep, nil
}

// WriteReportXLSX builds the report of role and streams it to w as a workbook.
func (s *DashboardService) WriteReportXLSX(ctx context.Context, w io.Writer, role domain.ReportRole, f analytics.Filters) error {
	rep, err := s.Report(ctx, role, f)
	if err != nil {
		return err
	}
	if err := s.workbook.Write(w, rep); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write workbook",
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// aggregate runs the steps in order, checking ctx before each one.
func aggregate(ctx context.Context, steps ...func()) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		step()
	}
	return nil
}

func (s *DashboardService) recordAggregation(ctx context.Context, span trace.Span, view string, d time.Duration, f analytics.Filters) {
	infrastructure.RecordAggregation(ctx, s.metrics, view, d)
	span.SetAttributes(
		attribute.String("dashboard.view", view),
		attribute.Bool("dashboard.filtered", !f.IsZero()))
	s.logger.DebugContext(ctx, "Dashboard computed",
		slog.String("view", view),
		slog.Duration("duration", d))
}

func reportFilters(f analytics.Filters) domain.ReportFilters {
	return domain.ReportFilters{
		Category:     f.Category,
		CouponType:   f.CouponType,
		Neighborhood: f.Neighborhood,
		Start:        f.Start,
		End:          f.End,
	}
}
