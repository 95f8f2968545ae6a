package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	apperrors "picpulse/internal/errors"
	"picpulse/internal/infrastructure"
)

// candidateSeparators are tried in order when sniffing the field delimiter.
var candidateSeparators = []rune{',', ';', '\t'}

// DefaultSniffLines is the number of lines inspected when detecting the separator.
const DefaultSniffLines = 50

// RawTable is a delimited file read into memory with its header.
type RawTable struct {
	Path        string
	Separator   rune
	Header      []string
	Records     [][]string
	RowsRead    int
	SkippedRows int

	index map[string]int
}

// Column returns the position of a named column.
func (t *RawTable) Column(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			if _, dup := t.index[h]; !dup {
				t.index[h] = i
			}
		}
	}
	i, ok := t.index[name]
	return i, ok
}

// Value returns the trimmed cell for a column, or "" when the column is absent.
func (t *RawTable) Value(record []string, col int, ok bool) string {
	if !ok || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// Loader reads delimited files, sniffing the separator and skipping malformed rows.
type Loader struct {
	logger     *slog.Logger
	sniffLines int
}

// NewLoader creates a loader. A non-positive sniffLines uses DefaultSniffLines.
func NewLoader(logger *slog.Logger, sniffLines int) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if sniffLines <= 0 {
		sniffLines = DefaultSniffLines
	}
	return &Loader{
		logger:     infrastructure.ComponentLogger(logger, infrastructure.ComponentDatasetLoader),
		sniffLines: sniffLines,
	}
}

// LoadFile reads one file from disk. A missing or unreadable file is a storage error.
func (l *Loader) LoadFile(ctx context.Context, path string) (*RawTable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read %s", path), err).
			With("path", path)
	}

	table, err := l.Parse(ctx, content)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), err).
			With("path", path)
	}
	table.Path = path

	if table.SkippedRows > 0 {
		l.logger.WarnContext(ctx, "skipped malformed rows",
			slog.String("path", path),
			slog.Int("skipped", table.SkippedRows),
			slog.Int("rows_read", table.RowsRead))
	}

	l.logger.InfoContext(ctx, "loaded delimited file",
		slog.String("path", path),
		slog.String("separator", separatorName(table.Separator)),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", len(table.Records)))

	return table, nil
}

// Parse decodes file content that has already been read.
func (l *Loader) Parse(ctx context.Context, content []byte) (*RawTable, error) {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(content) {
		content = bytes.ToValidUTF8(content, []byte("\uFFFD"))
	}

	sep := l.sniffSeparator(content)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file has no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := &RawTable{
		Separator: sep,
		Header:    make([]string, len(header)),
	}
	for i, h := range header {
		table.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			table.RowsRead++
			table.SkippedRows++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if isBlankRecord(record) {
			continue
		}

		table.RowsRead++
		if len(record) != len(table.Header) {
			table.SkippedRows++
			continue
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// sniffSeparator picks the candidate that splits the most sample lines into the
// same number of fields as the header. Ties go to the wider header, then to
// candidate order.
func (l *Loader) sniffSeparator(content []byte) rune {
	sample := sampleLines(content, l.sniffLines)
	if len(sample) == 0 {
		return ','
	}

	best := ','
	bestConsistent, bestWidth := -1, 0

	for _, sep := range candidateSeparators {
		reader := csv.NewReader(strings.NewReader(strings.Join(sample, "\n")))
		reader.Comma = sep
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		header, err := reader.Read()
		if err != nil || len(header) < 2 {
			continue
		}

		consistent := 0
		for {
			rec, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				continue
			}
			if len(rec) == len(header) {
				consistent++
			}
		}

		if consistent > bestConsistent || (consistent == bestConsistent && len(header) > bestWidth) {
			best, bestConsistent, bestWidth = sep, consistent, len(header)
		}
	}

	return best
}

func sampleLines(content []byte, limit int) []string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := make([]string, 0, limit)
	for scanner.Scan() && len(lines) < limit {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func separatorName(sep rune) string {
	switch sep {
	case '\t':
		return "tab"
	case ';':
		return "semicolon"
	default:
		return "comma"
	}
}
