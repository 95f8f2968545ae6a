// Package report builds exportable role reports.
//
// A report reproduces one dashboard (CEO, CFO or projections) as an ordered
// list of sections. Each section holds a chart spec, its quickchart image URL
// and the data table behind it. Sections are computed concurrently over a
// bounded errgroup; each writes into its own slot so the output keeps the
// dashboard order. A section that fails is listed in Report.Omitted and the
// rest of the report is still produced.
//
// Usage:
//
//	b := report.NewBuilder(tables, logger, report.WithWorkers(4))
//	rep, err := b.Build(ctx, domain.ReportRoleCFO, analytics.Filters{})
package report
