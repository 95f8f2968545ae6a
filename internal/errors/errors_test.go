package errors

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), includeStack)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewExportError("failed to save workbook", cause).With("role", "cfo").With("file", "cfo.xlsx")

	assert.Equal(t, "[EXPORT] failed to save workbook: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cfo", err.Fields["role"])
	attrs := err.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "file", attrs[0].Key)
	assert.Equal(t, "cfo.xlsx", attrs[0].Value.String())
	assert.Equal(t, "role", attrs[1].Key)
	assert.Equal(t, "[STORAGE] failed to read x.csv", NewStorageError("failed to read x.csv", nil).Error())
	assert.Empty(t, NewStorageError("x", nil).LogAttrs())

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", NewParsingError("bad csv", nil)), &appErr)
	assert.Equal(t, ErrTypeParsing, appErr.Type)
}

func TestAPIError(t *testing.T) {
	err := InvalidParameter("inicio", stderrors.New("want DD/MM/YYYY"))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_PARAMETER", err.ErrorCode)
	assert.Equal(t, `Invalid value for parameter "inicio"`, err.Error())
	assert.Equal(t, "want DD/MM/YYYY", err.Details)

	verrs := NewValidationErrors([]ValidationError{{Field: "months", Message: "max"}})
	assert.Equal(t, ValidationErrors{Errors: []ValidationError{{Field: "months", Message: "max"}}}, verrs.Details)

	tooLarge := PayloadTooLarge(1024, 4096)
	assert.Equal(t, http.StatusRequestEntityTooLarge, tooLarge.StatusCode)
	assert.Equal(t, map[string]any{"max_size": int64(1024), "size": int64(4096)}, tooLarge.Details)
	assert.Equal(t, map[string]any{"max_size": int64(1024)}, PayloadTooLarge(1024, -1).Details)

	role := UnknownReportRole(stderrors.New(`unknown report role "coo"`))
	assert.Equal(t, http.StatusNotFound, role.StatusCode)
	assert.Equal(t, CodeNotFound, role.ErrorCode)
}

func TestErrorToProblem(t *testing.T) {
	h := quietHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/reports/cfo", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"cancelled wrapped", fmt.Errorf("build: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout},
		{"api validation", ErrValidation("months", "required"), http.StatusBadRequest, TypeValidation},
		{"unknown role", UnknownReportRole(stderrors.New("coo")), http.StatusNotFound, TypeNotFound},
		{"too large", PayloadTooLarge(10, 11), http.StatusRequestEntityTooLarge, TypeValidation},
		{"invalid json", ErrInvalidJSON, http.StatusBadRequest, TypeValidation},
		{"invalid projection", InvalidProjection(stderrors.New("horizon")), http.StatusBadRequest, TypeValidation},
		{"data not loaded", fmt.Errorf("ceo: %w", ErrDataNotLoaded), http.StatusServiceUnavailable, TypeDataNotLoaded},
		{"no history", ErrNoHistory, http.StatusUnprocessableEntity, TypeNoHistory},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit},
		{"app parsing", NewParsingError("bad", nil), http.StatusUnprocessableEntity, TypeDataParsing},
		{"app storage", NewStorageError("io", nil), http.StatusInternalServerError, TypeDataStorage},
		{"app export", NewExportError("xlsx", nil), http.StatusInternalServerError, TypeReportExport},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "/api/reports/cfo", p.Instance)
		})
	}
}

func TestHandleError_WritesProblem(t *testing.T) {
	h := quietHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard/ceo", nil)
	r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-1"))
	rec := httptest.NewRecorder()

	h.HandleError(rec, r, ErrValidation("inicio", "invalid date"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeValidation, body["type"])
	assert.Equal(t, "Bad Request", body["title"])
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Equal(t, "req-1", body["trace_id"])
	assert.Equal(t, map[string]any{"field": "inicio", "message": "invalid date"}, body["details"])
	_, hasStack := body["stack"]
	assert.False(t, hasStack)
}

func TestHandleError_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	quietHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestHandleError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	quietHandler(true).HandleError(rec, httptest.NewRequest(http.MethodGet, "/x", nil),
		NewStorageError("failed to read", stderrors.New("/secret/path")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/secret/path")
	assert.Contains(t, decodeProblem(t, rec), "stack")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/a").
		WithExtension("type", "overridden?").
		WithExtension("trace_id", "t")

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, TypeNotFound, body["type"], "standard fields win over extensions")
	assert.Equal(t, "t", body["trace_id"])
	assert.Equal(t, float64(404), body["status"])
	_, hasDetail := body["detail"]
	assert.False(t, hasDetail)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := quietHandler(false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/nope", decodeProblem(t, rec)["instance"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}

func TestErrorMiddleware_LogsByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	mw := NewErrorMiddleware(quietHandler(false), logger)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))
	body := `{"months":0,"celular":"11999999999"}`
	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/projections?x=1", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(400), entry["status"])
	assert.Equal(t, "x=1", entry["query"])
	assert.Contains(t, entry["request_body"], "[REDACTED]")
	assert.NotContains(t, entry["request_body"], "11999999999")
}

func TestErrorMiddleware_LogsRouteAndRole(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(NewErrorMiddleware(quietHandler(false), slog.New(slog.NewJSONHandler(&buf, nil))).Handler)
	r.Get("/api/reports/{role}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/reports/cfo", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "/api/reports/{role}", entry["route"])
	assert.Equal(t, "cfo", entry["report_role"])
}

func TestHandleError_LogsAppErrorFields(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)), false)
	rec := httptest.NewRecorder()

	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/api/reports/cfo.xlsx", nil),
		NewExportError("failed to write workbook", stderrors.New("broken pipe")).With("role", "cfo"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeProblem(t, rec), "role")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cfo", entry["role"])
	assert.Equal(t, "ERROR", entry["level"])
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, levelForStatus(http.StatusNoContent))
	assert.Equal(t, slog.LevelWarn, levelForStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, slog.LevelError, levelForStatus(http.StatusServiceUnavailable))
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	mw := NewErrorMiddleware(quietHandler(false), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	handler := mw.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("x") }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
