package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel_Defaults(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider, "tracing has no exporter by default")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporters(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"
	_, err := InitializeOTel(cfg, quietLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	cfg = DefaultOTelConfig()
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, quietLogger())
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

func TestTraceCorrelation(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	cfg.TraceWriter = io.Discard

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "aggregate")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestBusinessMetrics_ExposedOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NoError(t, RegisterRuntimeGauges(providers.Meter, time.Now()))

	ctx := context.Background()
	RecordDatasetLoad(ctx, metrics, "transactions", 10, 2, 3)
	RecordDatasetLoadDuration(ctx, metrics, time.Second, true)
	RecordAggregation(ctx, metrics, "ceo", 20*time.Millisecond)
	RecordReportSection(ctx, metrics, "cfo", "receita_segmento", time.Millisecond, true)
	RecordReportSection(ctx, metrics, "cfo", "cupom_x_compra", time.Millisecond, false)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "dataset_rows_loaded_total")
	assert.Contains(t, body, "report_sections_built_total")
	assert.Contains(t, body, "report_sections_omitted_total")
	assert.Contains(t, body, "aggregation_duration_seconds")
	assert.Contains(t, body, "system_goroutines")
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordDatasetLoad(ctx, nil, "t", 1, 0, 0)
		RecordDatasetLoadDuration(ctx, nil, time.Second, false)
		RecordAggregation(ctx, nil, "cfo", time.Second)
		RecordReportSection(ctx, nil, "ceo", "s", time.Second, false)
	})
}

func TestCreateBusinessMetrics_Noop(t *testing.T) {
	metrics, err := CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, metrics.ReportSectionsBuilt)
}

func TestReadRuntimeStats(t *testing.T) {
	stats := ReadRuntimeStats(time.Now().Add(-time.Minute))
	assert.Positive(t, stats.GoRoutines)
	assert.Positive(t, stats.CPUCount)
	assert.GreaterOrEqual(t, stats.ProcessUptime, time.Minute)
}
