package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"picpulse/internal/charts"
	"picpulse/internal/config"
	apperrors "picpulse/internal/errors"
	"picpulse/internal/infrastructure"
	"picpulse/internal/report"
	"picpulse/pkg/contracts/domain"
)

const (
	// SummarySheet holds the title, generation time and KPIs.
	SummarySheet = "Resumo"

	maxSheetName = 31
	tableRow     = 4
	dateLayout   = "02/01/2006"
	moneyFormat  = `"R$" #,##0.00`
)

// WorkbookWriter writes reports as XLSX workbooks.
type WorkbookWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer. Relative file names resolve
// against the reports directory of paths.
func NewWorkbookWriter(paths *config.Paths, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{paths: paths, logger: infrastructure.ComponentLogger(logger, infrastructure.ComponentExporter)}
}

// Write streams the workbook for rep to out.
func (w *WorkbookWriter) Write(out io.Writer, rep *report.Report) error {
	f, err := Workbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return apperrors.NewExportError("failed to write workbook", err).With("role", string(rep.Role))
	}
	return nil
}

// WriteFile saves the workbook for rep and returns the full path written.
func (w *WorkbookWriter) WriteFile(rep *report.Report, fileName string) (string, error) {
	fullPath := fileName
	if !filepath.IsAbs(fileName) && w.paths != nil {
		fullPath = w.paths.GetReportPath(fileName)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := Workbook(rep)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(fullPath); err != nil {
		return "", apperrors.NewExportError("failed to save workbook", err).
			With("role", string(rep.Role)).
			With("path", fullPath)
	}
	w.logger.Info("Workbook written",
		slog.String("role", string(rep.Role)),
		slog.String("full_path", fullPath),
		slog.Int("sections", len(rep.Sections)),
		slog.Int("omitted", len(rep.Omitted)))
	return fullPath, nil
}

// Workbook builds the in-memory workbook for rep. The caller closes it.
func Workbook(rep *report.Report) (*excelize.File, error) {
	return buildWorkbook(rep, writeSection)
}

type sectionWriter func(f *excelize.File, s report.Section, st styleSet) error

// buildWorkbook writes every section with write. A section that cannot be
// written is removed and listed with the report's omitted sections.
func buildWorkbook(rep *report.Report, write sectionWriter) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	omitted := slices.Clone(rep.Omitted)
	for _, s := range rep.Sections {
		if err := write(f, s, styles); err != nil {
			if name := SheetName(s.Key); name != SummarySheet {
				_ = f.DeleteSheet(name)
			}
			omitted = append(omitted, domain.OmittedSection{
				Key:    s.Key,
				Title:  s.Title,
				Reason: fmt.Sprintf("workbook: %v", err),
			})
		}
	}

	if err := writeSummary(f, rep, omitted, styles); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

type styleSet struct {
	title  int
	header int
	money  int
	link   int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	}); err != nil {
		return s, err
	}
	format := moneyFormat
	if s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
		return s, err
	}
	s.link, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "1265BE", Underline: "single"}})
	return s, err
}

func writeSummary(f *excelize.File, rep *report.Report, omitted []domain.OmittedSection, st styleSet) error {
	sheet := SummarySheet
	set := func(cell string, v any) error { return f.SetCellValue(sheet, cell, v) }

	if err := set("A1", rep.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}
	if err := set("A2", "Gerado em"); err != nil {
		return err
	}
	if err := set("B2", rep.GeneratedAt.Format(dateLayout+" 15:04")); err != nil {
		return err
	}
	if err := set("A3", "Filtros"); err != nil {
		return err
	}
	if err := set("B3", describeFilters(rep.Filters)); err != nil {
		return err
	}

	row := 5
	if err := f.SetSheetRow(sheet, cellName(1, row), &[]any{"Indicador", "Valor", "Texto"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, row), cellName(3, row), st.header); err != nil {
		return err
	}
	for _, k := range rep.KPIs {
		row++
		if err := f.SetSheetRow(sheet, cellName(1, row), &[]any{k.Label, k.Value, FormatKPI(k)}); err != nil {
			return err
		}
		if k.Unit == domain.KPIUnitMoney {
			if err := f.SetCellStyle(sheet, cellName(2, row), cellName(2, row), st.money); err != nil {
				return err
			}
		}
	}

	if len(omitted) > 0 {
		row += 2
		if err := set(cellName(1, row), "Seções omitidas"); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), st.header); err != nil {
			return err
		}
		for _, o := range omitted {
			row++
			if err := f.SetSheetRow(sheet, cellName(1, row), &[]any{o.Title, o.Reason}); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "A", "C", 28)
}

func writeSection(f *excelize.File, s report.Section, st styleSet) error {
	sheet := SheetName(s.Key)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", s.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}
	if s.ImageURL != "" {
		if err := f.SetCellValue(sheet, "A2", "Abrir gráfico"); err != nil {
			return err
		}
		if err := f.SetCellHyperLink(sheet, "A2", s.ImageURL, "External"); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A2", "A2", st.link); err != nil {
			return err
		}
	}

	if len(s.Table.Header) == 0 {
		return nil
	}
	header := make([]any, len(s.Table.Header))
	for i, h := range s.Table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, cellName(1, tableRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, tableRow), cellName(len(header), tableRow), st.header); err != nil {
		return err
	}
	for i, rec := range s.Table.Records {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = cellValue(j, v)
		}
		if err := f.SetSheetRow(sheet, cellName(1, tableRow+1+i), &row); err != nil {
			return err
		}
	}

	anchor := cellName(len(header)+2, tableRow)
	if len(s.Image) > 0 {
		if err := f.AddPictureFromBytes(sheet, anchor, &excelize.Picture{
			Extension: ".png",
			File:      s.Image,
			Format:    &excelize.GraphicOptions{AltText: s.Title, ScaleX: 0.8, ScaleY: 0.8},
		}); err != nil {
			return fmt.Errorf("failed to add chart image: %w", err)
		}
		return nil
	}
	if chart := nativeChart(sheet, s); chart != nil {
		if err := f.AddChart(sheet, anchor, chart); err != nil {
			return fmt.Errorf("failed to add chart: %w", err)
		}
	}
	return nil
}

// cellValue keeps the label column as text and stores numeric cells as numbers
// so the native chart can plot them.
func cellValue(col int, v string) any {
	if col == 0 {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// nativeChart maps the section chart onto an excelize chart reading the
// sheet's own table, or nil when there is nothing to plot.
func nativeChart(sheet string, s report.Section) *excelize.Chart {
	rows, cols := len(s.Table.Records), len(s.Table.Header)
	if rows == 0 || cols < 2 {
		return nil
	}

	var typ excelize.ChartType
	switch s.Chart.Kind {
	case charts.KindHBar:
		typ = excelize.Bar
	case charts.KindHeatmap:
		typ = excelize.ColStacked
	case charts.KindPie:
		typ = excelize.Pie
	case charts.KindLine:
		typ = excelize.Line
	case charts.KindScatter:
		typ = excelize.Scatter
	default:
		typ = excelize.Col
	}

	first, last := tableRow+1, tableRow+rows
	ref := func(col, from, to int) string {
		return fmt.Sprintf("'%s'!%s:%s", sheet, absCell(col, from), absCell(col, to))
	}

	valueCols := make([]int, 0, cols-1)
	if s.Chart.Kind == charts.KindHistogram || s.Chart.Kind == charts.KindPie {
		valueCols = append(valueCols, cols)
	} else {
		for c := 2; c <= cols; c++ {
			valueCols = append(valueCols, c)
		}
	}

	series := make([]excelize.ChartSeries, 0, len(valueCols))
	for _, c := range valueCols {
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!%s", sheet, absCell(c, tableRow)),
			Categories: ref(1, first, last),
			Values:     ref(c, first, last),
		})
	}
	return &excelize.Chart{
		Type:   typ,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: s.Title}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	}
}

// SheetName turns a section key into a valid, at most 31 character sheet name.
func SheetName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '\'':
			return '_'
		}
		return r
	}, key)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

func describeFilters(f domain.ReportFilters) string {
	var parts []string
	add := func(label, v string) {
		if v != "" && !strings.EqualFold(v, "all") {
			parts = append(parts, label+": "+v)
		}
	}
	add("Categoria", f.Category)
	add("Tipo de cupom", f.CouponType)
	add("Bairro", f.Neighborhood)
	if f.Start != nil {
		parts = append(parts, "Início: "+f.Start.Format(dateLayout))
	}
	if f.End != nil {
		parts = append(parts, "Fim: "+f.End.Format(dateLayout))
	}
	if len(parts) == 0 {
		return "Nenhum"
	}
	return strings.Join(parts, "; ")
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func absCell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row, true)
	return name
}
