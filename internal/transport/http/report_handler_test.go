package http

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"picpulse/internal/analytics"
	apierrors "picpulse/internal/errors"
	pmw "picpulse/internal/middleware"
	"picpulse/internal/report"
	"picpulse/internal/services"
	"picpulse/pkg/contracts/domain"
)

func newTestReportHandler(svc DashboardServiceInterface) *ReportHandler {
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	h := NewReportHandler(svc, pmw.NewValidationMiddleware(logger, errorHandler), logger, errorHandler)
	h.now = func() time.Time { return time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC) }
	return h
}

func TestReportHandler_GetReport(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockDashboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "ceo report",
			path: "/ceo",
			setupMock: func(m *MockDashboardService) {
				m.On("Report", mock.Anything, domain.ReportRoleCEO, analytics.Filters{}).
					Return(&report.Report{ID: "r-1", Role: domain.ReportRoleCEO, Title: "Relatório CEO"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"r-1"`,
		},
		{
			name: "role is case insensitive",
			path: "/CFO?bairro=Jardins",
			setupMock: func(m *MockDashboardService) {
				m.On("Report", mock.Anything, domain.ReportRoleCFO, analytics.Filters{Neighborhood: "Jardins"}).
					Return(&report.Report{Role: domain.ReportRoleCFO}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"role":"cfo"`,
		},
		{
			name:           "unknown role",
			path:           "/coo",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"/errors/not-found"`,
		},
		{
			name:           "bad filter",
			path:           "/projections?inicio=ontem",
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"inicio"`,
		},
		{
			name: "data not loaded",
			path: "/projections",
			setupMock: func(m *MockDashboardService) {
				m.On("Report", mock.Anything, domain.ReportRoleProjections, mock.Anything).
					Return(nil, services.ErrDataNotLoaded)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"DATA_NOT_LOADED"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDashboardService)
			tt.setupMock(mockService)
			handler := newTestReportHandler(mockService)

			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestReportHandler_DownloadXLSX(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("WriteReportXLSX", mock.Anything, mock.Anything, domain.ReportRoleCFO, analytics.Filters{Category: "Moda"}).
		Run(func(args mock.Arguments) {
			w := args.Get(1).(io.Writer)
			_, _ = w.Write([]byte("PK\x03\x04workbook"))
		}).
		Return(nil)
	handler := newTestReportHandler(mockService)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cfo/xlsx?categoria=Moda", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="relatorio_cfo_20240502_143000.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "12", rec.Header().Get("Content-Length"))
	assert.Equal(t, "PK\x03\x04workbook", rec.Body.String())
	mockService.AssertExpectations(t)
}

func TestReportHandler_DownloadXLSXFailure(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("WriteReportXLSX", mock.Anything, mock.Anything, domain.ReportRoleCEO, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(1).(io.Writer)
			_, _ = w.Write([]byte("partial"))
		}).
		Return(errors.New("excel exploded"))
	handler := newTestReportHandler(mockService)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ceo/xlsx", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apierrors.ContentType, rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.NotContains(t, rec.Body.String(), "partial")
	assert.NotContains(t, rec.Body.String(), "excel exploded")
}
