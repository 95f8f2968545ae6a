package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"picpulse/internal/analytics"
	"picpulse/internal/charts"
	"picpulse/internal/dataset"
	"picpulse/internal/infrastructure"
	"picpulse/pkg/contracts"
	"picpulse/pkg/contracts/domain"
)

// DefaultWorkers bounds how many sections are computed at once.
const DefaultWorkers = 6

var (
	// ErrUnknownRole is returned for a role with no report definition.
	ErrUnknownRole = errors.New("unknown report role")
	// ErrNotLoaded is returned when the builder has no tables.
	ErrNotLoaded = errors.New("datasets not loaded")
)

var tracer = otel.Tracer("picpulse/report")

// ImageRenderer draws a chart as an encoded PNG image.
type ImageRenderer interface {
	PNG(spec charts.Spec) ([]byte, error)
}

// Builder computes role reports from loaded tables.
type Builder struct {
	tables   *dataset.Tables
	logger   *slog.Logger
	renderer *charts.Renderer
	images   ImageRenderer
	metrics  *infrastructure.BusinessMetrics
	workers  int
	bins     int
	params   analytics.ProjectionParams
	now      func() time.Time
	defs     map[domain.ReportRole][]sectionDef
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers sets the section concurrency. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithRenderer sets the chart image renderer. A nil renderer disables image URLs.
func WithRenderer(r *charts.Renderer) Option {
	return func(b *Builder) { b.renderer = r }
}

// WithImageRenderer sets the chart image renderer. A nil renderer disables
// embedded images.
func WithImageRenderer(r ImageRenderer) Option {
	return func(b *Builder) { b.images = r }
}

// WithMetrics records section outcomes on m.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithHistogramBins sets the bin count of the coupon value histogram.
func WithHistogramBins(n int) Option {
	return func(b *Builder) { b.bins = n }
}

// WithProjectionParams sets the parameters of the projections report.
func WithProjectionParams(p analytics.ProjectionParams) Option {
	return func(b *Builder) { b.params = p }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a report builder over tables.
func NewBuilder(tables *dataset.Tables, logger *slog.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		tables:   tables,
		logger:   infrastructure.ComponentLogger(logger, infrastructure.ComponentReport),
		renderer: charts.NewRenderer(),
		images:   charts.NewPlotRenderer(),
		workers:  DefaultWorkers,
		bins:     analytics.DefaultHistogramBins,
		params:   analytics.DefaultProjectionParams(),
		now:      time.Now,
		defs: map[domain.ReportRole][]sectionDef{
			domain.ReportRoleCEO:         sectionsFor(domain.ReportRoleCEO),
			domain.ReportRoleCFO:         sectionsFor(domain.ReportRoleCFO),
			domain.ReportRoleProjections: sectionsFor(domain.ReportRoleProjections),
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tables returns the tables the builder reads.
func (b *Builder) Tables() *dataset.Tables {
	return b.tables
}

type slot struct {
	section Section
	err     error
}

// Build computes every section of role's report concurrently. A section that
// fails or panics is left out and listed in Report.Omitted; only cancellation
// of ctx fails the whole build.
func (b *Builder) Build(ctx context.Context, role domain.ReportRole, f analytics.Filters) (*Report, error) {
	defs, ok := b.defs[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if b.tables == nil {
		return nil, ErrNotLoaded
	}

	ctx = infrastructure.WithReportRole(ctx, string(role))
	ctx, span := tracer.Start(ctx, "report.Build",
		trace.WithAttributes(attribute.String("report.role", string(role))))
	defer span.End()

	started := time.Now()
	in := input{
		tables:  b.tables,
		filters: f,
		bins:    b.bins,
		projection: sync.OnceValues(func() (analytics.Projection, error) {
			base, err := analytics.HistoricalBaseline(b.tables)
			if err != nil {
				return analytics.Projection{}, err
			}
			return analytics.Project(base, b.params)
		}),
	}

	rep := &Report{
		ID:          uuid.NewString(),
		Role:        role,
		Title:       role.Title(),
		GeneratedAt: b.now().UTC(),
		Filters:     filtersOf(f),
	}
	switch role {
	case domain.ReportRoleCEO:
		rep.KPIs = ceoKPIs(analytics.ComputeCEOKPIs(b.tables, f))
	case domain.ReportRoleCFO:
		rep.KPIs = cfoKPIs(analytics.ComputeCFOKPIs(b.tables, f))
	case domain.ReportRoleProjections:
		if p, err := in.projection(); err == nil {
			rep.KPIs = projectionKPIs(p)
		}
	}

	slots := make([]slot, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, def := range defs {
		g.Go(func() error {
			slots[i] = b.runSection(gctx, role, def, in)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("report build cancelled: %w", err)
	}

	for i, s := range slots {
		if s.err != nil {
			b.logger.WarnContext(ctx, "Report section omitted",
				slog.String("role", string(role)),
				slog.String("section", defs[i].key),
				slog.String("error", s.err.Error()))
			rep.Omitted = append(rep.Omitted, domain.OmittedSection{
				Key:    defs[i].key,
				Title:  defs[i].title,
				Reason: s.err.Error(),
			})
			continue
		}
		rep.Sections = append(rep.Sections, s.section)
		rep.Metadata.IncludedSections = append(rep.Metadata.IncludedSections, s.section.Key)
	}

	for _, d := range b.tables.Diagnostics() {
		if d.RowsKept > 0 {
			rep.Metadata.DataSources = append(rep.Metadata.DataSources, d.Table)
		}
	}
	rep.Metadata.ProcessingTime = time.Since(started)
	rep.Metadata.Version = contracts.Version

	span.SetAttributes(
		attribute.Int("report.sections", len(rep.Sections)),
		attribute.Int("report.omitted", len(rep.Omitted)))
	b.logger.InfoContext(ctx, "Report built",
		slog.String("role", string(role)),
		slog.Int("sections", len(rep.Sections)),
		slog.Int("omitted", len(rep.Omitted)),
		slog.Duration("duration", rep.Metadata.ProcessingTime))
	return rep, nil
}

func (b *Builder) runSection(ctx context.Context, role domain.ReportRole, def sectionDef, in input) (s slot) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s = slot{err: fmt.Errorf("section panicked: %v", r)}
		}
		infrastructure.RecordReportSection(ctx, b.metrics, string(role), def.key, time.Since(started), s.err == nil)
	}()

	if err := ctx.Err(); err != nil {
		return slot{err: err}
	}
	res, err := def.build(in)
	if err != nil {
		return slot{err: err}
	}

	sec := Section{
		Key:   def.key,
		Title: def.title,
		Chart: res.chart,
		Table: tableOf(res.data),
	}
	if b.images != nil && !res.chart.Empty() {
		img, err := b.images.PNG(res.chart)
		if err != nil {
			return slot{err: fmt.Errorf("chart image failed: %w", err)}
		}
		sec.Image, sec.HasImage = img, true
	}
	if b.renderer != nil && !res.chart.Empty() {
		url, err := b.renderer.ImageURL(res.chart)
		if err != nil {
			b.logger.WarnContext(ctx, "Chart image url failed",
				slog.String("section", def.key),
				slog.String("error", err.Error()))
		} else {
			sec.ImageURL = url
		}
	}
	return slot{section: sec}
}
