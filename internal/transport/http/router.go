package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"picpulse/internal/analytics"
	apierrors "picpulse/internal/errors"
	"picpulse/internal/infrastructure"
	pmw "picpulse/internal/middleware"
	"picpulse/internal/services"
)

// RouterConfig carries everything NewRouter wires.
type RouterConfig struct {
	Dashboard         DashboardServiceInterface
	Health            *services.HealthService
	ProjectionDefault analytics.ProjectionParams
	Metrics           *infrastructure.BusinessMetrics
	Tracer            trace.Tracer
	PrometheusHandler http.Handler
	Logger            *slog.Logger

	AllowedOrigins []string
	EnableCORS     bool
	RateLimit      bool
	RPS            float64
	Burst          int
	RequestTimeout time.Duration
	IncludeStack   bool
}

// NewRouter assembles the middleware chain and mounts every handler.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errorHandler := apierrors.NewErrorHandler(logger, cfg.IncludeStack)
	validation := pmw.NewValidationMiddleware(logger, errorHandler)

	r := chi.NewRouter()
	r.Use(pmw.RequestID)
	r.Use(pmw.RealIP)
	r.Use(apierrors.NewErrorMiddleware(errorHandler, logger).Handler)
	r.Use(pmw.NewOTelMiddleware(cfg.Tracer, cfg.Metrics, logger).Handler)
	r.Use(pmw.SecurityHeaders)
	if cfg.EnableCORS {
		r.Use(pmw.CORS(pmw.CORSConfig{AllowedOrigins: cfg.AllowedOrigins, Logger: logger}))
	}
	if cfg.RateLimit {
		r.Use(pmw.NewRateLimiter(cfg.RPS, cfg.Burst, errorHandler, logger).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Method(http.MethodGet, "/metrics", NewMetricsHandler(cfg.PrometheusHandler, errorHandler))

	health := NewHealthHandler(cfg.Health, logger)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
		r.With(validation.ValidateRequest).Post("/client-log", NewClientLogHandler(validation, logger, errorHandler).Handle)

		r.Group(func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(pmw.Timeout(cfg.RequestTimeout))
			}
			r.Mount("/dashboard", NewDashboardHandler(cfg.Dashboard, validation, cfg.ProjectionDefault, logger, errorHandler).Routes())
			r.Mount("/reports", NewReportHandler(cfg.Dashboard, validation, logger, errorHandler).Routes())
		})
	})
	return r
}
