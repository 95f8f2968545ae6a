// Command reportgen builds role reports from the CSV files and writes them
// as XLSX workbooks, optionally with one CSV per section.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"picpulse/internal/analytics"
	"picpulse/internal/app"
	"picpulse/internal/config"
	"picpulse/internal/exporter"
	"picpulse/internal/infrastructure"
	"picpulse/pkg/contracts/domain"
)

type options struct {
	dataDir    string
	outDir     string
	role       string
	category   string
	couponType string
	bairro     string
	start      string
	end        string
	csv        bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("reportgen", flag.ContinueOnError)
	fs.StringVar(&o.dataDir, "data", "", "directory holding the four CSV files (defaults to the configured data dir)")
	fs.StringVar(&o.outDir, "out", "", "output directory (defaults to the configured reports dir)")
	fs.StringVar(&o.role, "role", "all", "report role: ceo, cfo, projections or all")
	fs.StringVar(&o.category, "categoria", "", "establishment category filter")
	fs.StringVar(&o.couponType, "tipo-cupom", "", "coupon type filter")
	fs.StringVar(&o.bairro, "bairro", "", "neighborhood filter")
	fs.StringVar(&o.start, "inicio", "", "start date, DD/MM/YYYY")
	fs.StringVar(&o.end, "fim", "", "end date, DD/MM/YYYY")
	fs.BoolVar(&o.csv, "csv", false, "also write one CSV per section")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func (o options) roles() ([]domain.ReportRole, error) {
	if strings.EqualFold(o.role, "all") {
		return []domain.ReportRole{domain.ReportRoleCEO, domain.ReportRoleCFO, domain.ReportRoleProjections}, nil
	}
	role, err := domain.ParseReportRole(o.role)
	if err != nil {
		return nil, err
	}
	return []domain.ReportRole{role}, nil
}

func (o options) filters() (analytics.Filters, error) {
	f := analytics.Filters{Category: o.category, CouponType: o.couponType, Neighborhood: o.bairro}
	parse := func(name, v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse("02/01/2006", v)
		if err != nil {
			return nil, fmt.Errorf("-%s must be DD/MM/YYYY: %w", name, err)
		}
		return &t, nil
	}
	var err error
	if f.Start, err = parse("inicio", o.start); err != nil {
		return f, err
	}
	if f.End, err = parse("fim", o.end); err != nil {
		return f, err
	}
	return f, f.Validate()
}

// run generates the requested reports and returns the files written.
func run(ctx context.Context, cfg *config.Config, o options, logger *slog.Logger) ([]string, error) {
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
	}
	if o.outDir != "" {
		cfg.Paths.ReportsDir = o.outDir
	}
	roles, err := o.roles()
	if err != nil {
		return nil, err
	}
	f, err := o.filters()
	if err != nil {
		return nil, err
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	runLog := infrastructure.ComponentLogger(logger, infrastructure.ComponentReportgen)

	paths, err := cfg.ResolvePaths("")
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	tables, err := app.LoadTables(ctx, cfg, paths, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	builder := app.NewReportBuilder(cfg, tables, logger, nil)
	workbooks := exporter.NewWorkbookWriter(paths, logger)
	csvs := exporter.NewCSVWriter(paths, logger)

	stamp := time.Now().Format("20060102_150405")
	var written []string
	for _, role := range roles {
		rep, err := builder.Build(ctx, role, f)
		if err != nil {
			return written, fmt.Errorf("failed to build %s report: %w", role, err)
		}
		path, err := workbooks.WriteFile(rep, fmt.Sprintf("relatorio_%s_%s.xlsx", role, stamp))
		if err != nil {
			return written, err
		}
		written = append(written, path)

		if o.csv {
			files, err := csvs.WriteReport(rep)
			if err != nil {
				return written, err
			}
			written = append(written, files...)
		}
		for _, om := range rep.Omitted {
			runLog.WarnContext(ctx, "Section omitted",
				slog.String("role", string(role)),
				slog.String("section", om.Key),
				slog.String("reason", om.Reason))
		}
	}
	runLog.InfoContext(ctx, "Reports written", slog.Int("files", len(written)))
	return written, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := infrastructure.NewJSONLogger(os.Stderr, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := run(ctx, cfg, o, logger)
	for _, f := range files {
		fmt.Fprintln(os.Stdout, f)
	}
	if err != nil {
		logger.Error("Report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
