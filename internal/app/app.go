package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"picpulse/internal/analytics"
	"picpulse/internal/charts"
	"picpulse/internal/config"
	"picpulse/internal/dataset"
	"picpulse/internal/exporter"
	"picpulse/internal/infrastructure"
	"picpulse/internal/report"
	"picpulse/internal/services"
	handlers "picpulse/internal/transport/http"
	"picpulse/pkg/contracts"
)

// AppName is logged at startup.
const AppName = "PicPulse Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        chi.Router
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	startTime time.Time
	listener  net.Listener
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Tables    *dataset.Tables
	Builder   *report.Builder
	Dashboard *services.DashboardService
	Health    *services.HealthService
}

// Option configures New.
type Option func(*Application)

// WithLogger replaces the process-wide logger InitializeLogger would build.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// NewApplication loads the configuration from file and environment and
// builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New wires every component for cfg. A dataset load failure is logged and
// leaves the API up with readiness reporting not_ready.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg, startTime: time.Now()}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger
	}
	a.Logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths("")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(a.Logger)
	a.Paths = paths

	providers, err := infrastructure.InitializeOTel(OTelConfig(cfg.Telemetry), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics
	if err := infrastructure.RegisterRuntimeGauges(providers.Meter, a.startTime); err != nil {
		return nil, fmt.Errorf("failed to register runtime gauges: %w", err)
	}

	tables, err := LoadTables(context.Background(), cfg, paths, a.Logger, metrics)
	if err != nil {
		a.Logger.Error("Datasets not loaded; serving without data",
			slog.String("data_dir", paths.DataDir),
			slog.String("error", err.Error()))
	}
	a.initializeServices(tables)
	a.setupRouter()
	a.createServer()
	return a, nil
}

// OTelConfig maps the telemetry section onto the OpenTelemetry setup.
func OTelConfig(t config.TelemetryConfig) *infrastructure.OTelConfig {
	cfg := infrastructure.DefaultOTelConfig()
	cfg.ServiceVersion = contracts.Version
	cfg.Environment = t.Environment
	cfg.EnableMetrics = t.EnableMetrics
	cfg.EnableTracing = t.EnableTracing
	cfg.TraceExporter = t.TraceExporter
	cfg.SampleRatio = t.SampleRatio
	if !t.EnableMetrics {
		cfg.MetricExporter = "none"
	}
	return cfg
}

// LoadTables loads the four configured files from the data directory and
// records per-table load metrics.
func LoadTables(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*dataset.Tables, error) {
	if err := paths.ValidateDataDir(); err != nil {
		infrastructure.RecordDatasetLoadDuration(ctx, metrics, 0, false)
		return nil, err
	}

	src := dataset.Sources{
		Transactions: paths.GetDataPath(cfg.Data.TransactionsFile),
		Captures:     paths.GetDataPath(cfg.Data.CapturesFile),
		Pedestrians:  paths.GetDataPath(cfg.Data.PedestriansFile),
		Players:      paths.GetDataPath(cfg.Data.PlayersFile),
	}
	start := time.Now()
	tables, err := dataset.LoadAll(ctx, src, dataset.Options{
		Logger:        logger,
		SniffLines:    cfg.Data.SniffLines,
		ReferenceDate: cfg.Data.ReferenceTime(),
	})
	infrastructure.RecordDatasetLoadDuration(ctx, metrics, time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	for _, d := range tables.Diagnostics() {
		infrastructure.RecordDatasetLoad(ctx, metrics, d.Table, d.RowsKept, d.RowsSkipped, d.CoercedRows)
	}
	return tables, nil
}

// NewReportBuilder creates the report builder configured by cfg.
func NewReportBuilder(cfg *config.Config, tables *dataset.Tables, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *report.Builder {
	var renderer *charts.Renderer
	if cfg.Report.ImageURLs {
		renderer = &charts.Renderer{
			Width:  cfg.Report.ChartWidth,
			Height: cfg.Report.ChartHeight,
			Host:   cfg.Report.QuickChartHost,
		}
	}
	var images report.ImageRenderer
	if cfg.Report.ChartImages {
		images = &charts.PlotRenderer{Width: cfg.Report.ChartWidth, Height: cfg.Report.ChartHeight}
	}
	return report.NewBuilder(tables, logger,
		report.WithWorkers(cfg.Report.Workers),
		report.WithRenderer(renderer),
		report.WithImageRenderer(images),
		report.WithMetrics(metrics),
		report.WithHistogramBins(cfg.Data.HistogramBins))
}

// initializeServices initializes all application services
func (a *Application) initializeServices(tables *dataset.Tables) {
	builder := NewReportBuilder(a.Config, tables, a.Logger, a.Metrics)
	dashboard := services.NewDashboardService(builder, a.Logger,
		services.WithHistogramBins(a.Config.Data.HistogramBins),
		services.WithBusinessMetrics(a.Metrics),
		services.WithWorkbookWriter(exporter.NewWorkbookWriter(a.Paths, a.Logger)))

	a.Services = &ServiceContainer{
		Tables:    tables,
		Builder:   builder,
		Dashboard: dashboard,
		Health:    services.NewHealthService(contracts.Version, dashboard, a.Logger),
	}
}

func (a *Application) setupRouter() {
	cfg := a.Config
	a.Router = handlers.NewRouter(handlers.RouterConfig{
		Dashboard:         a.Services.Dashboard,
		Health:            a.Services.Health,
		ProjectionDefault: analytics.DefaultProjectionParams(),
		Metrics:           a.Metrics,
		Tracer:            a.OTelProviders.Tracer,
		PrometheusHandler: a.OTelProviders.PrometheusHTTP,
		Logger:            a.Logger,
		AllowedOrigins:    cfg.Security.AllowedOrigins,
		EnableCORS:        cfg.Security.EnableCORS,
		RateLimit:         cfg.Security.RateLimit.Enabled,
		RPS:               cfg.Security.RateLimit.RPS,
		Burst:             cfg.Security.RateLimit.Burst,
		RequestTimeout:    cfg.Server.WriteTimeout,
		IncludeStack:      cfg.Logging.Development,
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()),
		slog.Bool("data_loaded", a.Services.Dashboard.Loaded()))
	return nil
}

// Addr returns the bound address once Start has run.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("uptime", time.Since(a.startTime)))
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(runCtx, cancel); err != nil {
		return err
	}

	<-runCtx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")
	return a.Stop(ctx)
}
