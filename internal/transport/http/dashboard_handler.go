package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"picpulse/internal/analytics"
	apierrors "picpulse/internal/errors"
	pmw "picpulse/internal/middleware"
	"picpulse/internal/services"
	api "picpulse/pkg/contracts/api/v1"
)

// DashboardHandler serves the interactive dashboard views.
type DashboardHandler struct {
	service      DashboardServiceInterface
	validation   *pmw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	defaults     analytics.ProjectionParams
}

// NewDashboardHandler creates a dashboard handler. Projection requests
// override defaults field by field.
func NewDashboardHandler(
	service DashboardServiceInterface,
	validation *pmw.ValidationMiddleware,
	defaults analytics.ProjectionParams,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		defaults:     defaults,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/options", h.GetOptions)
	r.Get("/diagnostics", h.GetDiagnostics)
	r.Get("/ceo", h.GetCEO)
	r.Get("/cfo", h.GetCFO)
	r.With(h.validation.ValidateRequest).Post("/projections", h.PostProjections)
	return r
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, "options", err)
		return
	}
	render.JSON(w, r, api.Success(opts))
}

// GetDiagnostics handles GET /api/dashboard/diagnostics
func (h *DashboardHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.fail(w, r, "diagnostics", err)
		return
	}
	render.JSON(w, r, api.SuccessList(diags, len(diags)))
}

// GetCEO handles GET /api/dashboard/ceo
func (h *DashboardHandler) GetCEO(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r, h.validation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	view, err := h.service.CEO(r.Context(), f)
	if err != nil {
		h.fail(w, r, "ceo", err)
		return
	}
	render.JSON(w, r, api.Success(view))
}

// GetCFO handles GET /api/dashboard/cfo
func (h *DashboardHandler) GetCFO(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r, h.validation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	view, err := h.service.CFO(r.Context(), f)
	if err != nil {
		h.fail(w, r, "cfo", err)
		return
	}
	render.JSON(w, r, api.Success(view))
}

// PostProjections handles POST /api/dashboard/projections. An empty body
// runs the defaults.
func (h *DashboardHandler) PostProjections(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectionRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	proj, err := h.service.Projections(r.Context(), projectionParams(req, h.defaults))
	if err != nil {
		h.fail(w, r, "projections", err)
		return
	}
	render.JSON(w, r, api.Success(proj))
}

// fail logs a service error and maps it onto an API error.
func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, view string, err error) {
	h.logger.WarnContext(r.Context(), "dashboard request failed",
		slog.String("view", view),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	h.errorHandler.HandleError(w, r, mapServiceError(err))
}

// mapServiceError turns service sentinels into API errors. Anything else
// passes through and ends up as a 500, or a 504 for a cancelled context.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrDataNotLoaded):
		return apierrors.ErrDataNotLoaded
	case errors.Is(err, analytics.ErrNoHistory):
		return apierrors.ErrNoHistory
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.InvalidProjection(err)
	case errors.Is(err, services.ErrUnknownRole):
		return apierrors.UnknownReportRole(err)
	}
	return err
}
