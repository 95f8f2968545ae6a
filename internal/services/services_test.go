package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picpulse/internal/analytics"
	"picpulse/internal/dataset"
	"picpulse/internal/report"
	"picpulse/pkg/contracts"
	"picpulse/pkg/contracts/domain"
)

func num(v float64) *float64 { return &v }

func hour(h int) *int { return &h }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const txCaps = dataset.CapCouponID | dataset.CapPhone | dataset.CapEstablishment | dataset.CapCategory |
	dataset.CapCouponType | dataset.CapCouponValue | dataset.CapPicMoneyShare |
	dataset.CapDate | dataset.CapWeekday | dataset.CapHour

func fixtureTables(dated bool) *dataset.Tables {
	rows := []dataset.Transaction{
		{CouponID: "1", Phone: "11", Establishment: "Padaria", Category: "Alimentação", CouponType: "Desconto", CouponValue: num(10), PicMoneyShare: num(1), Hour: hour(9)},
		{CouponID: "2", Phone: "22", Establishment: "Cinema", Category: "Lazer", CouponType: "Cashback", CouponValue: num(20), PicMoneyShare: num(2), Hour: hour(20)},
		{CouponID: "3", Phone: "11", Establishment: "Padaria", Category: "Alimentação", CouponType: "Cashback", CouponValue: num(30), PicMoneyShare: num(3), Hour: hour(9)},
	}
	if dated {
		for i := range rows {
			d := time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC)
			rows[i].Date = &d
			rows[i].Weekday = dataset.WeekdayOf(&d)
		}
	}
	captures := []dataset.ValueCapture{
		{StoreName: "Loja A", CouponValue: num(1), PurchaseValue: num(3)},
		{StoreName: "Loja B", CouponValue: num(2), PurchaseValue: num(5)},
	}
	players := []dataset.Player{{Phone: "11", Age: num(30), Bracket: dataset.Bracket25To34}}

	return dataset.NewTables(
		dataset.NewTable(dataset.TableTransactions, rows, txCaps),
		dataset.NewTable(dataset.TableCaptures, captures,
			dataset.CapStoreName|dataset.CapCouponValue|dataset.CapPurchaseValue),
		nil,
		dataset.NewTable(dataset.TablePlayers, players,
			dataset.CapPhone|dataset.CapAge|dataset.CapAgeBracket),
	)
}

func newService(tables *dataset.Tables) *DashboardService {
	builder := report.NewBuilder(tables, quietLogger(), report.WithRenderer(nil))
	return NewDashboardService(builder, quietLogger(), WithHistogramBins(2))
}

func TestDashboardService_NotLoaded(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	assert.False(t, svc.Loaded())
	assert.True(t, svc.LoadedAt().IsZero())

	_, err := svc.CEO(ctx, analytics.Filters{})
	assert.ErrorIs(t, err, ErrDataNotLoaded)
	_, err = svc.CFO(ctx, analytics.Filters{})
	assert.ErrorIs(t, err, ErrDataNotLoaded)
	_, err = svc.Options(ctx)
	assert.ErrorIs(t, err, ErrDataNotLoaded)
	_, err = svc.Diagnostics(ctx)
	assert.ErrorIs(t, err, ErrDataNotLoaded)
	_, err = svc.Report(ctx, domain.ReportRoleCEO, analytics.Filters{})
	assert.ErrorIs(t, err, ErrDataNotLoaded)
}

func TestDashboardService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(fixtureTables(true)).CEO(ctx, analytics.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelAfter reports cancellation once its budget of Err calls is spent.
type cancelAfter struct {
	context.Context
	left int
}

func (c *cancelAfter) Err() error {
	if c.left <= 0 {
		return context.Canceled
	}
	c.left--
	return nil
}

func TestDashboardService_CancelledMidAggregation(t *testing.T) {
	svc := newService(fixtureTables(true))

	_, err := svc.CEO(&cancelAfter{Context: context.Background(), left: 3}, analytics.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.CFO(&cancelAfter{Context: context.Background(), left: 2}, analytics.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.Projections(&cancelAfter{Context: context.Background(), left: 1}, analytics.DefaultProjectionParams())
	assert.ErrorIs(t, err, context.Canceled)

	d, err := svc.CEO(&cancelAfter{Context: context.Background(), left: 100}, analytics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, d.KPIs.TotalRedemptions)
}

func TestDashboardService_CEO(t *testing.T) {
	svc := newService(fixtureTables(true))

	d, err := svc.CEO(context.Background(), analytics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, analytics.CEOKPIs{TotalRedemptions: 3, ActiveUsers: 2, Establishments: 2, AverageTicket: 20}, d.KPIs)
	assert.Equal(t, []string{"Alimentação", "Lazer"}, d.Segments.Labels)
	assert.Equal(t, []float64{2, 1}, d.Segments.Values)
	assert.Equal(t, 2.0, d.HourHeatmap.Cell("09", "Alimentação"))

	filtered, err := svc.CEO(context.Background(), analytics.Filters{Category: "Lazer"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.KPIs.TotalRedemptions)
	assert.Equal(t, "Lazer", filtered.Filters.Category)
}

func TestDashboardService_CFO(t *testing.T) {
	svc := newService(fixtureTables(true))

	d, err := svc.CFO(context.Background(), analytics.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lazer", "Alimentação"}, d.RevenueBySegment.Labels)
	assert.Equal(t, []float64{20, 40}, d.RevenueBySegment.Values)
	assert.Equal(t, 2, d.KPIs.Captures)
	assert.Len(t, d.ValueHistogram.Bins, 2)
	assert.Len(t, d.CouponVsPurchase.Points, 2)
}

func TestDashboardService_OptionsAndDiagnostics(t *testing.T) {
	svc := newService(fixtureTables(true))
	ctx := context.Background()

	opts, err := svc.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alimentação", "Lazer"}, opts.Categories)
	assert.Equal(t, []string{"Cashback", "Desconto"}, opts.CouponTypes)
	require.NotNil(t, opts.MinDate)
	assert.Equal(t, 1, opts.MinDate.Day())

	diags, err := svc.Diagnostics(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 4)
	assert.Equal(t, 3, diags[0].RowsKept)
}

func TestDashboardService_Projections(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		p, err := newService(fixtureTables(true)).Projections(ctx, analytics.DefaultProjectionParams())
		require.NoError(t, err)
		assert.Len(t, p.Daily, 360)
		assert.NotEmpty(t, p.Monthly)
		assert.Equal(t, 2, p.Baseline.UniqueUsers)
	})

	t.Run("invalid params", func(t *testing.T) {
		params := analytics.DefaultProjectionParams()
		params.HorizonMonths = 5
		_, err := newService(fixtureTables(true)).Projections(ctx, params)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, analytics.ErrInvalidProjection)
	})

	t.Run("no history", func(t *testing.T) {
		_, err := newService(fixtureTables(false)).Projections(ctx, analytics.DefaultProjectionParams())
		assert.ErrorIs(t, err, analytics.ErrNoHistory)
	})
}

func TestDashboardService_Report(t *testing.T) {
	svc := newService(fixtureTables(true))
	ctx := context.Background()

	rep, err := svc.Report(ctx, domain.ReportRoleCFO, analytics.Filters{})
	require.NoError(t, err)
	assert.Len(t, rep.Sections, 4)
	assert.Equal(t, contracts.Version, rep.Metadata.Version)

	_, err = svc.Report(ctx, domain.ReportRole("coo"), analytics.Filters{})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestDashboardService_WriteReportXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := newService(fixtureTables(true)).WriteReportXLSX(context.Background(), &buf, domain.ReportRoleCEO, analytics.Filters{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestHealthService(t *testing.T) {
	ctx := context.Background()

	t.Run("not loaded", func(t *testing.T) {
		hs := NewHealthService("", nil, quietLogger())
		status := hs.ReadinessCheck(ctx)
		assert.False(t, status.Ready())
		assert.Equal(t, "not_ready", status.Status)
		assert.Equal(t, contracts.Version, status.Version)
	})

	t.Run("dashboard without tables", func(t *testing.T) {
		hs := NewHealthService("1.2.3", newService(nil), quietLogger())
		status := hs.ReadinessCheck(ctx)
		assert.False(t, status.Ready())
		assert.Equal(t, ServiceHealth{Status: "not_ready", Message: ErrDataNotLoaded.Error()}, status.Services["data"])
	})

	t.Run("loaded", func(t *testing.T) {
		hs := NewHealthService("1.2.3", newService(fixtureTables(true)), quietLogger())
		status := hs.ReadinessCheck(ctx)
		assert.True(t, status.Ready())
		data, ok := status.Services["data"].(ServiceHealth)
		require.True(t, ok)
		assert.Equal(t, "4 tables loaded, 6 rows", data.Message)
	})

	t.Run("liveness and version", func(t *testing.T) {
		hs := NewHealthService("1.2.3", nil, quietLogger())
		assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)

		live := hs.LivenessCheck(ctx)
		assert.Equal(t, "alive", live.Status)
		assert.Contains(t, live.Runtime, "goroutines")

		v := hs.Version()
		assert.Equal(t, "1.2.3", v["version"])
		assert.Equal(t, contracts.APIVersion, v["api_version"])
	})
}
