package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"picpulse/internal/config"
	apperrors "picpulse/internal/errors"
	"picpulse/internal/infrastructure"
	"picpulse/internal/report"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative file paths resolve
// against the reports directory of paths.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: infrastructure.ComponentLogger(logger, infrastructure.ComponentExporter)}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any existing file, and
// returns the full path written.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", apperrors.NewExportError("failed to create csv", err).With("path", fullPath)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

// WriteTable writes a section table with a BOM.
func (w *CSVWriter) WriteTable(filePath string, table report.Table) (string, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   table.Header,
		Records:   table.Records,
		BOMPrefix: true,
	})
}

// WriteReport writes the KPIs and every section of rep as <role>_<key>.csv
// files and returns the paths written, KPIs first.
func (w *CSVWriter) WriteReport(rep *report.Report) ([]string, error) {
	kpis := report.Table{Header: []string{"indicador", "valor"}}
	for _, k := range rep.KPIs {
		kpis.Records = append(kpis.Records, []string{k.Label, FormatKPI(k)})
	}

	written := make([]string, 0, len(rep.Sections)+1)
	path, err := w.WriteTable(fmt.Sprintf("%s_kpis.csv", rep.Role), kpis)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	for _, s := range rep.Sections {
		path, err := w.WriteTable(fmt.Sprintf("%s_%s.csv", rep.Role, s.Key), s.Table)
		if err != nil {
			return written, fmt.Errorf("section %s: %w", s.Key, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// resolvePath keeps absolute paths and places relative ones under the reports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
