package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. PICPULSE_SERVER_PORT.
const EnvPrefix = "PICPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// DataConfig names the input files and tunes their loading
type DataConfig struct {
	TransactionsFile string `yaml:"transactions_file" envconfig:"TRANSACTIONS_FILE"`
	CapturesFile     string `yaml:"captures_file" envconfig:"CAPTURES_FILE"`
	PedestriansFile  string `yaml:"pedestrians_file" envconfig:"PEDESTRIANS_FILE"`
	PlayersFile      string `yaml:"players_file" envconfig:"PLAYERS_FILE"`
	SniffLines       int    `yaml:"sniff_lines" envconfig:"SNIFF_LINES"`
	HistogramBins    int    `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS"`
	// ReferenceDate (DD/MM/YYYY) fixes the date player ages are computed at.
	ReferenceDate string `yaml:"reference_date" envconfig:"REFERENCE_DATE"`
}

// ReportConfig tunes report building
type ReportConfig struct {
	Workers        int    `yaml:"workers" envconfig:"WORKERS"`
	ChartWidth     int    `yaml:"chart_width" envconfig:"CHART_WIDTH"`
	ChartHeight    int    `yaml:"chart_height" envconfig:"CHART_HEIGHT"`
	QuickChartHost string `yaml:"quickchart_host" envconfig:"QUICKCHART_HOST"`
	ImageURLs      bool   `yaml:"image_urls" envconfig:"IMAGE_URLS"`
	ChartImages    bool   `yaml:"chart_images" envconfig:"CHART_IMAGES"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load loads configuration from the first config file found and the environment
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom builds the configuration in three layers: defaults, then the YAML
// file at configFile (skipped when empty), then PICPULSE_* environment
// variables. Later layers win.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("data directory must be specified")
	}
	if c.Data.SniffLines < 0 {
		return fmt.Errorf("sniff lines must not be negative")
	}
	if c.Data.HistogramBins < 1 {
		return fmt.Errorf("histogram bins must be at least 1, got %d", c.Data.HistogramBins)
	}
	if c.Data.ReferenceDate != "" {
		if _, err := time.Parse("02/01/2006", c.Data.ReferenceDate); err != nil {
			return fmt.Errorf("reference date must be DD/MM/YYYY: %w", err)
		}
	}
	if c.Report.Workers < 1 {
		return fmt.Errorf("report workers must be at least 1, got %d", c.Report.Workers)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q: want console, file or both", c.Logging.Output)
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "picpulse.log")
	}
	return nil
}

// ReferenceTime returns the parsed reference date, or the zero time when unset.
func (d DataConfig) ReferenceTime() time.Time {
	t, err := time.Parse("02/01/2006", d.ReferenceDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// getConfigFilePath returns the first config file found, or "" for none
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080", "http://localhost:3000"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/picpulse.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "reports",
			LogsDir:    "logs",
		},
		Data: DataConfig{
			TransactionsFile: "transacoes_cupons.csv",
			CapturesFile:     "lojas_valores.csv",
			PedestriansFile:  "pedestres_paulista.csv",
			PlayersFile:      "base_players.csv",
			SniffLines:       5,
			HistogramBins:    20,
		},
		Report: ReportConfig{
			Workers:     6,
			ChartWidth:  800,
			ChartHeight: 450,
			ImageURLs:   true,
			ChartImages: true,
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			EnableMetrics: true,
			EnableTracing: true,
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
	}
}
