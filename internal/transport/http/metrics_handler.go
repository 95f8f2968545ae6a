package http

import (
	"net/http"

	apierrors "picpulse/internal/errors"
)

// MetricsHandler exposes the Prometheus registry fed by the OTel exporter.
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler wraps the exporter handler. A nil exporter means
// metrics are disabled and /metrics answers 503.
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusServiceUnavailable,
			apierrors.CodeUnavailable, "Metrics are disabled"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
