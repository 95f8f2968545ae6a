package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved, absolute directories the application uses.
type Paths struct {
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// ResolvePaths makes every configured directory absolute relative to base.
// An empty base means the working directory.
func (c *Config) ResolvePaths(base string) (*Paths, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}
	return &Paths{
		DataDir:    abs(c.Paths.DataDir),
		ReportsDir: abs(c.Paths.ReportsDir),
		LogsDir:    abs(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates the output directories. The data directory is
// input only and must already exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ValidateDataDir checks that the data directory exists and is a directory.
func (p *Paths) ValidateDataDir() error {
	info, err := os.Stat(p.DataDir)
	if err != nil {
		return fmt.Errorf("data directory %s: %w", p.DataDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", p.DataDir)
	}
	return nil
}

// GetDataPath returns the full path of an input file
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// GetReportPath returns the full path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved paths.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution",
		slog.String("data_dir", p.DataDir),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
