// Package exporter writes built reports to disk and to HTTP responses.
//
// It has two writers:
//
// CSVWriter: one CSV file per table, UTF-8 with a BOM so Excel reads accents
// correctly.
//
// WorkbookWriter: an XLSX workbook per report with a "Resumo" sheet for the
// KPIs and one sheet per section holding its table, a native chart and a link
// to the rendered chart image.
//
// Example usage:
//
//	rep, err := builder.Build(ctx, domain.ReportRoleCFO, filters)
//	...
//	wb := exporter.NewWorkbookWriter(paths, logger)
//	path, err := wb.WriteFile(rep, "cfo.xlsx")
package exporter
