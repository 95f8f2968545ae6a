package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "picpulse/internal/errors"
	pmw "picpulse/internal/middleware"
	api "picpulse/pkg/contracts/api/v1"
	"picpulse/pkg/contracts/domain"
)

// XLSXContentType is the media type of workbook downloads.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves role reports as JSON or XLSX.
type ReportHandler struct {
	service      DashboardServiceInterface
	validation   *pmw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewReportHandler creates a report handler
func NewReportHandler(service DashboardServiceInterface, validation *pmw.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{role}", func(r chi.Router) {
		r.Use(h.RoleCtx)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.GetReport)
		r.Get("/xlsx", h.DownloadXLSX)
	})
	return r
}

type roleKey struct{}

// RoleCtx validates the {role} path parameter
func (h *ReportHandler) RoleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, err := domain.ParseReportRole(chi.URLParam(r, "role"))
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.UnknownReportRole(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithRole(r, role)))
	})
}

// GetReport handles GET /api/reports/{role}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	role := roleFrom(r)
	f, err := parseFilters(r, h.validation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rep, err := h.service.Report(r.Context(), role, f)
	if err != nil {
		h.logger.WarnContext(r.Context(), "report failed",
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.Success(rep))
}

// DownloadXLSX handles GET /api/reports/{role}/xlsx. The workbook is built
// in memory first so a failure still produces a problem response.
func (h *ReportHandler) DownloadXLSX(w http.ResponseWriter, r *http.Request) {
	role := roleFrom(r)
	f, err := parseFilters(r, h.validation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteReportXLSX(r.Context(), &buf, role, f); err != nil {
		h.logger.WarnContext(r.Context(), "workbook export failed",
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	name := fmt.Sprintf("relatorio_%s_%s.xlsx", role, h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "workbook download interrupted",
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
	}
}

func contextWithRole(r *http.Request, role domain.ReportRole) context.Context {
	return context.WithValue(r.Context(), roleKey{}, role)
}

func roleFrom(r *http.Request) domain.ReportRole {
	role, _ := r.Context().Value(roleKey{}).(domain.ReportRole)
	return role
}
