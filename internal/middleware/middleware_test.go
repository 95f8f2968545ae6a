package middleware

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apierrors "picpulse/internal/errors"
	"picpulse/internal/infrastructure"
	api "picpulse/pkg/contracts/api/v1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var gotReqID, gotTraceID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReqID = GetReqID(r.Context())
		gotTraceID = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, gotReqID, 36)
		assert.Equal(t, gotReqID, gotTraceID)
		assert.Equal(t, gotReqID, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", gotReqID)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, apierrors.NewErrorHandler(discardLogger(), false), discardLogger())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/dashboard/ceo", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Equal(t, apierrors.ContentType, last.Header().Get("Content-Type"))
	assert.Contains(t, last.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://dash.local"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{"allowed origin", http.MethodGet, "http://dash.local", http.StatusOK, "http://dash.local"},
		{"foreign origin", http.MethodGet, "http://evil.local", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://dash.local", http.StatusNoContent, "http://dash.local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/reports/ceo", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, "10.0.0.1:5000", GetRealIP(req))

	req.Header.Set("X-Real-IP", "192.168.1.9")
	assert.Equal(t, "192.168.1.9", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", GetRealIP(req))
}

func TestOTelMiddleware(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var traceID string
	mw := NewOTelMiddleware(tp.Tracer("test"), metrics, discardLogger())
	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/api/reports/{role}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/ceo", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/reports/{role}", ended[0].Name())
	assert.Equal(t, ended[0].SpanContext().TraceID().String(), traceID)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("route")
				assert.Equal(t, "/api/reports/{role}", route.AsString())
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)
}

func TestOTelMiddleware_NilMetrics(t *testing.T) {
	mw := NewOTelMiddleware(nil, nil, nil)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestValidateStruct(t *testing.T) {
	v := NewValidationMiddleware(discardLogger(), apierrors.NewErrorHandler(discardLogger(), false))
	six, five := 6, 5
	high := 30.0

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantMsg   string
	}{
		{"valid filters", api.FilterRequest{Start: "01/03/2024", End: "31/03/2024"}, "", ""},
		{"iso date", api.FilterRequest{Start: "2024-03-01"}, "inicio", "inicio must be a date in DD/MM/YYYY format"},
		{"valid projection", api.ProjectionRequest{HorizonMonths: &six}, "", ""},
		{"horizon step", api.ProjectionRequest{HorizonMonths: &five}, "horizon_months", "horizon_months must be a multiple of 3"},
		{"growth range", api.ProjectionRequest{TransactionGrowthPct: &high}, "transaction_growth_pct",
			"transaction_growth_pct must be less than or equal to 15"},
		{"report role", api.ReportRequest{Role: "coo"}, "role", "role must be one of: ceo, cfo, projections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			require.Len(t, details.Errors, 1)
			assert.Equal(t, tt.wantField, details.Errors[0].Field)
			assert.Equal(t, tt.wantMsg, details.Errors[0].Message)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	v := NewValidationMiddleware(discardLogger(), apierrors.NewErrorHandler(discardLogger(), false))
	var body string
	h := v.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projections", strings.NewReader(`{"horizon_months":6}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"horizon_months":6}`, body, "body must be restored for the handler")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projections", strings.NewReader(`{nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")

	req := httptest.NewRequest(http.MethodPost, "/projections", strings.NewReader("{}"))
	req.ContentLength = DefaultMaxBodySize + 1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/projections", strings.NewReader(strings.Repeat(" ", DefaultMaxBodySize+10)+"{}"))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
}
