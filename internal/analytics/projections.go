package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/now"

	"picpulse/internal/dataset"
)

// BaselineWindowDays is how far back from the latest transaction the baseline looks.
const BaselineWindowDays = 30

// ErrNoHistory is returned when no dated transaction exists to project from.
var ErrNoHistory = errors.New("no dated transactions to build a baseline from")

// ErrInvalidProjection is wrapped by every ProjectionParams validation failure.
var ErrInvalidProjection = errors.New("invalid projection parameters")

// Baseline summarizes the most recent month of transactions.
type Baseline struct {
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	Days                int       `json:"days"`
	Transactions        int       `json:"transactions"`
	UniqueUsers         int       `json:"unique_users"`
	TransactionsPerDay  float64   `json:"transactions_per_day"`
	RevenuePerDay       float64   `json:"revenue_per_day"`
	NetRevenuePerDay    float64   `json:"net_revenue_per_day"`
	AverageTicket       float64   `json:"average_ticket"`
	TransactionsPerUser float64   `json:"transactions_per_user"`
}

// HistoricalBaseline measures the transactions dated within 30 days before the
// latest transaction date, both ends inclusive.
func HistoricalBaseline(t *dataset.Tables) (Baseline, error) {
	_, last := t.DateRange()
	if last == nil {
		return Baseline{}, ErrNoHistory
	}
	cutoff := last.AddDate(0, 0, -BaselineWindowDays)

	var (
		b              Baseline
		first, latest  time.Time
		revenue, share float64
		ticketSum      float64
		ticketN        int
	)
	users := make(map[string]struct{})
	for tx := range t.Transactions.All() {
		if tx.Date == nil || tx.Date.Before(cutoff) {
			continue
		}
		if b.Transactions == 0 || tx.Date.Before(first) {
			first = *tx.Date
		}
		if b.Transactions == 0 || tx.Date.After(latest) {
			latest = *tx.Date
		}
		b.Transactions++

		if tx.Phone != "" {
			users[tx.Phone] = struct{}{}
		}
		if tx.CouponValue != nil {
			revenue += *tx.CouponValue
			ticketSum += *tx.CouponValue
			ticketN++
		}
		if tx.PicMoneyShare != nil {
			share += *tx.PicMoneyShare
		}
	}

	b.From, b.To = first, latest
	b.Days = int(latest.Sub(first).Hours()/24) + 1
	if b.Days < 1 {
		b.Days = 1
	}
	days := float64(b.Days)

	b.UniqueUsers = len(users)
	b.TransactionsPerDay = float64(b.Transactions) / days
	b.RevenuePerDay = revenue / days
	b.NetRevenuePerDay = (revenue - share) / days
	b.AverageTicket = mean(ticketSum, ticketN)
	if b.UniqueUsers > 0 {
		b.TransactionsPerUser = float64(b.Transactions) / float64(b.UniqueUsers)
	}
	return b, nil
}

// ProjectionParams drive the growth simulation. Percentages are whole numbers
// (5 means 5%).
type ProjectionParams struct {
	HorizonMonths        int     `json:"horizon_months"`
	UserGrowthPct        float64 `json:"user_growth_pct"`
	TransactionGrowthPct float64 `json:"transaction_growth_pct"`
	TicketGrowthPct      float64 `json:"ticket_growth_pct"`
	AcquisitionPerDay    float64 `json:"acquisition_per_day"`
	CostPerUserMonth     float64 `json:"cost_per_user_month"`
	OperatingMarginPct   float64 `json:"operating_margin_pct"`
}

// DefaultProjectionParams returns the simulation defaults.
func DefaultProjectionParams() ProjectionParams {
	return ProjectionParams{
		HorizonMonths:        12,
		UserGrowthPct:        5,
		TransactionGrowthPct: 3,
		TicketGrowthPct:      0,
		AcquisitionPerDay:    10,
		CostPerUserMonth:     2.50,
		OperatingMarginPct:   85,
	}
}

// Validate checks every parameter against its allowed range.
func (p ProjectionParams) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(p.HorizonMonths >= 3 && p.HorizonMonths <= 24 && p.HorizonMonths%3 == 0,
		"horizon_months must be a multiple of 3 between 3 and 24, got %d", p.HorizonMonths)
	check(p.UserGrowthPct >= -5 && p.UserGrowthPct <= 20,
		"user_growth_pct must be between -5 and 20, got %v", p.UserGrowthPct)
	check(p.TransactionGrowthPct >= -5 && p.TransactionGrowthPct <= 15,
		"transaction_growth_pct must be between -5 and 15, got %v", p.TransactionGrowthPct)
	check(p.TicketGrowthPct >= -10 && p.TicketGrowthPct <= 10,
		"ticket_growth_pct must be between -10 and 10, got %v", p.TicketGrowthPct)
	check(p.AcquisitionPerDay >= 0, "acquisition_per_day must not be negative, got %v", p.AcquisitionPerDay)
	check(p.CostPerUserMonth >= 0, "cost_per_user_month must not be negative, got %v", p.CostPerUserMonth)
	check(p.OperatingMarginPct >= 0 && p.OperatingMarginPct <= 100,
		"operating_margin_pct must be between 0 and 100, got %v", p.OperatingMarginPct)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidProjection, errors.Join(errs...))
}

// ProjectionDay is one simulated day.
type ProjectionDay struct {
	Date               time.Time `json:"date"`
	Users              float64   `json:"users"`
	TransactionsPerDay float64   `json:"transactions_per_day"`
	GrossRevenue       float64   `json:"gross_revenue"`
	NetRevenue         float64   `json:"net_revenue"`
	Costs              float64   `json:"costs"`
	Profit             float64   `json:"profit"`
}

// ProjectionMonth rolls simulated days up by calendar month. Users is the last
// day's value and TransactionsPerDay the mean; the rest are sums.
type ProjectionMonth struct {
	Month              string  `json:"month"`
	Users              float64 `json:"users"`
	TransactionsPerDay float64 `json:"transactions_per_day"`
	GrossRevenue       float64 `json:"gross_revenue"`
	NetRevenue         float64 `json:"net_revenue"`
	Costs              float64 `json:"costs"`
	Profit             float64 `json:"profit"`
}

// ProjectionSummary totals the whole horizon.
type ProjectionSummary struct {
	GrossRevenue float64 `json:"gross_revenue"`
	NetRevenue   float64 `json:"net_revenue"`
	Costs        float64 `json:"costs"`
	Profit       float64 `json:"profit"`
	FinalUsers   float64 `json:"final_users"`
	ProfitMargin float64 `json:"profit_margin_pct"`
}

// Projection is the result of a simulation.
type Projection struct {
	Params   ProjectionParams  `json:"params"`
	Baseline Baseline          `json:"baseline"`
	Daily    []ProjectionDay   `json:"daily"`
	Monthly  []ProjectionMonth `json:"monthly"`
	Summary  ProjectionSummary `json:"summary"`
}

// dailyRate converts a monthly growth percentage into a compounded daily rate.
func dailyRate(monthlyPct float64) float64 {
	return math.Pow(1+monthlyPct/100, 1.0/30) - 1
}

// Project simulates horizon*30 days starting at the baseline's last date.
func Project(b Baseline, p ProjectionParams) (Projection, error) {
	if err := p.Validate(); err != nil {
		return Projection{}, err
	}

	var (
		days   = p.HorizonMonths * 30
		gu     = dailyRate(p.UserGrowthPct)
		gt     = dailyRate(p.TransactionGrowthPct)
		gk     = dailyRate(p.TicketGrowthPct)
		users  = float64(b.UniqueUsers)
		tx     = b.TransactionsPerDay
		ticket = b.AverageTicket
	)

	out := Projection{
		Params:   p,
		Baseline: b,
		Daily:    make([]ProjectionDay, 0, days),
	}

	for i := 0; i < days; i++ {
		users = math.Max(0, users*(1+gu)+p.AcquisitionPerDay)
		tx = math.Max(0, tx*(1+gt))
		ticket = math.Max(0, ticket*(1+gk))

		gross := tx * ticket
		variable := gross * (1 - p.OperatingMarginPct/100)
		fixed := users * p.CostPerUserMonth / 30
		costs := variable + fixed

		out.Daily = append(out.Daily, ProjectionDay{
			Date:               b.To.AddDate(0, 0, i),
			Users:              users,
			TransactionsPerDay: tx,
			GrossRevenue:       gross,
			NetRevenue:         gross - variable,
			Costs:              costs,
			Profit:             gross - costs,
		})
	}

	out.Monthly = rollupMonthly(out.Daily)
	out.Summary = summarize(out.Daily)
	return out, nil
}

func rollupMonthly(days []ProjectionDay) []ProjectionMonth {
	var (
		months  []ProjectionMonth
		current time.Time
		n       int
	)
	for _, d := range days {
		start := now.With(d.Date).BeginningOfMonth()
		if len(months) == 0 || !start.Equal(current) {
			if len(months) > 0 {
				months[len(months)-1].TransactionsPerDay /= float64(n)
			}
			months = append(months, ProjectionMonth{Month: start.Format("2006-01")})
			current, n = start, 0
		}

		m := &months[len(months)-1]
		m.Users = d.Users
		m.TransactionsPerDay += d.TransactionsPerDay
		m.GrossRevenue += d.GrossRevenue
		m.NetRevenue += d.NetRevenue
		m.Costs += d.Costs
		m.Profit += d.Profit
		n++
	}
	if len(months) > 0 {
		months[len(months)-1].TransactionsPerDay /= float64(n)
	}
	return months
}

func summarize(days []ProjectionDay) ProjectionSummary {
	var s ProjectionSummary
	for _, d := range days {
		s.GrossRevenue += d.GrossRevenue
		s.NetRevenue += d.NetRevenue
		s.Costs += d.Costs
		s.Profit += d.Profit
	}
	if len(days) > 0 {
		s.FinalUsers = days[len(days)-1].Users
	}
	if s.GrossRevenue > 0 {
		s.ProfitMargin = s.Profit / s.GrossRevenue * 100
	}
	return s
}

// MonthlySeries extracts one monthly column as a Series for charting.
func (p Projection) MonthlySeries(name, valueTitle string, pick func(ProjectionMonth) float64) Series {
	s := Series{Name: name, LabelTitle: "mes", ValueTitle: valueTitle}
	for _, m := range p.Monthly {
		s.Labels = append(s.Labels, m.Month)
		s.Values = append(s.Values, pick(m))
	}
	return s
}
