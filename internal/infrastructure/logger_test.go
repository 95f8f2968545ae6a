package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picpulse/internal/config"
)

func lastEntry(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger_File(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())

	logger.Info("dataset loaded", "table", "transactions")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := lastEntry(t, content)
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, "transactions", entry["table"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, slog.LevelInfo)

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "with trace")
	assert.Equal(t, "trace-123", lastEntry(t, buf.Bytes())["trace_id"])

	buf.Reset()
	logger.InfoContext(context.Background(), "without trace")
	_, ok := lastEntry(t, buf.Bytes())["trace_id"]
	assert.False(t, ok)
}

func TestContextHandler_KeepsValuesThroughWith(t *testing.T) {
	var buf bytes.Buffer
	logger := ComponentLogger(NewJSONLogger(&buf, slog.LevelInfo), ComponentReport)

	ctx := WithReportRole(WithTraceID(context.Background(), "abc"), "cfo")
	logger.InfoContext(ctx, "Report built")
	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "report", entry["component"])
	assert.Equal(t, "abc", entry["trace_id"])
	assert.Equal(t, "cfo", entry["report_role"])

	buf.Reset()
	logger.InfoContext(context.Background(), "Report built")
	_, ok := lastEntry(t, buf.Bytes())["report_role"]
	assert.False(t, ok)
}

func TestComponentLogger_NilFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, ComponentLogger(nil, ComponentExporter))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn("shown")
	assert.Equal(t, "WARN", lastEntry(t, buf.Bytes())["level"])
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, ReportRole(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "an existing trace id is kept")
	assert.NotEqual(t, id, GetTraceID(EnsureTraceID(context.Background())))

	assert.Equal(t, "projections", ReportRole(WithReportRole(ctx, "projections")))
}
