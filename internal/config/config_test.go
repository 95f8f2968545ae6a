package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "transacoes_cupons.csv", cfg.Data.TransactionsFile)
	assert.Equal(t, 20, cfg.Data.HistogramBins)
	assert.Equal(t, 6, cfg.Report.Workers)
	assert.True(t, cfg.Report.ImageURLs)
	assert.True(t, cfg.Report.ChartImages)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFrom_FileOverlay(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  read_timeout: 5s
paths:
  data_dir: /srv/data
report:
  workers: 2
  quickchart_host: charts.local
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "keys absent from the file keep defaults")
	assert.Equal(t, "/srv/data", cfg.Paths.DataDir)
	assert.Equal(t, 2, cfg.Report.Workers)
	assert.Equal(t, "charts.local", cfg.Report.QuickChartHost)
	assert.Equal(t, 800, cfg.Report.ChartWidth)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9090\n")
	t.Setenv("PICPULSE_SERVER_PORT", "7070")
	t.Setenv("PICPULSE_SECURITY_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PICPULSE_DATA_REFERENCE_DATE", "15/06/2024")
	t.Setenv("PICPULSE_REPORT_WORKERS", "3")
	t.Setenv("PICPULSE_REPORT_CHART_IMAGES", "false")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 3, cfg.Report.Workers)
	assert.False(t, cfg.Report.ChartImages)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), cfg.Data.ReferenceTime())
}

func TestLoadFrom_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to load config from file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadFrom(writeConfigFile(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("PICPULSE_SERVER_PORT", "not-a-number")
		_, err := LoadFrom("")
		assert.ErrorContains(t, err, "failed to load config from env")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read timeout"},
		{"write timeout", func(c *Config) { c.Server.WriteTimeout = -time.Second }, "write timeout"},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed origin"},
		{"cors disabled without origins", func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}, ""},
		{"rate limit rps", func(c *Config) { c.Security.RateLimit.RPS = 0 }, "rps"},
		{"no data dir", func(c *Config) { c.Paths.DataDir = "" }, "data directory"},
		{"histogram bins", func(c *Config) { c.Data.HistogramBins = 0 }, "histogram bins"},
		{"reference date format", func(c *Config) { c.Data.ReferenceDate = "2024-06-15" }, "DD/MM/YYYY"},
		{"workers", func(c *Config) { c.Report.Workers = 0 }, "workers"},
		{"logging output", func(c *Config) { c.Logging.Output = "syslog" }, "logging output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, filepath.Join("logs", "picpulse.log"), cfg.Logging.FilePath)
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":8080", Default().Server.Addr())
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

func TestReferenceTime_Unset(t *testing.T) {
	assert.True(t, DataConfig{}.ReferenceTime().IsZero())
}

func TestGetConfigFilePath_Env(t *testing.T) {
	t.Setenv("PICPULSE_CONFIG", "/etc/picpulse.yaml")
	assert.Equal(t, "/etc/picpulse.yaml", getConfigFilePath())
}
