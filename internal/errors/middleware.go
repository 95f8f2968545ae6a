package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// maxLoggedBody caps what is buffered for logging; larger bodies are
	// rejected by the validation middleware anyway.
	maxLoggedBody = 1 << 20
	// maxLoggedBodyText is how much of a sanitized body reaches the log.
	maxLoggedBodyText = 500
)

// ErrorMiddleware writes one access record per request and turns panics
// into problem responses. Failed requests also log their sanitized body.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates the access logging and recovery middleware.
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function.
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		body := bufferBody(r)

		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				m.handler.HandlePanic(ww, r, rec)
			}
			status := ww.Status()
			attrs := append(routeAttrs(r),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", r.URL.RawQuery))
			}
			if status >= http.StatusBadRequest && len(body) > 0 {
				attrs = append(attrs, slog.String("request_body", truncate(sanitizeRequestBody(body), maxLoggedBodyText)))
			}
			m.logger.LogAttrs(r.Context(), levelForStatus(status), "http request", attrs...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// bufferBody reads a small declared body and puts a copy back on r.
func bufferBody(r *http.Request) []byte {
	if r.Body == nil || r.ContentLength <= 0 || r.ContentLength >= maxLoggedBody {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// routeAttrs names the matched route and, for report routes, the role. chi
// fills the route context while the request is served, so this runs after next.
func routeAttrs(r *http.Request) []slog.Attr {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if pattern := rctx.RoutePattern(); pattern != "" {
		attrs = append(attrs, slog.String("route", pattern))
	}
	if role := rctx.URLParam("role"); role != "" {
		attrs = append(attrs, slog.String("report_role", role))
	}
	return attrs
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// sensitiveFields are redacted from logged bodies. Phone numbers identify
// players and pedestrians.
var sensitiveFields = []string{
	"celular", "numero_celular", "phone", "password", "token", "api_key",
}

// sanitizeRequestBody redacts sensitive top-level JSON fields. A body that is
// not a JSON object is logged as is.
func sanitizeRequestBody(body []byte) string {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}
	for _, field := range sensitiveFields {
		if _, ok := data[field]; ok {
			data[field] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return string(sanitized)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
