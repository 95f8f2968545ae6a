// Package api contains the HTTP contract of the dashboard API.
// Version v1 represents the current stable API version.
package api

// DateLayout is the day-first layout of every date parameter.
const DateLayout = "02/01/2006"

// FilterRequest carries the dashboard filters. An empty value or "all"
// leaves a dimension unfiltered; dates are DD/MM/YYYY and inclusive.
type FilterRequest struct {
	Category     string `json:"categoria" query:"categoria" validate:"omitempty,max=120"`
	CouponType   string `json:"tipo_cupom" query:"tipo_cupom" validate:"omitempty,max=120"`
	Neighborhood string `json:"bairro" query:"bairro" validate:"omitempty,max=120"`
	Start        string `json:"inicio" query:"inicio" validate:"omitempty,dmydate"`
	End          string `json:"fim" query:"fim" validate:"omitempty,dmydate"`
}

// ProjectionRequest overrides projection parameters. Absent fields keep
// their defaults.
type ProjectionRequest struct {
	HorizonMonths        *int     `json:"horizon_months,omitempty" validate:"omitnil,min=3,max=24,step3"`
	UserGrowthPct        *float64 `json:"user_growth_pct,omitempty" validate:"omitnil,gte=-5,lte=20"`
	TransactionGrowthPct *float64 `json:"transaction_growth_pct,omitempty" validate:"omitnil,gte=-5,lte=15"`
	TicketGrowthPct      *float64 `json:"ticket_growth_pct,omitempty" validate:"omitnil,gte=-10,lte=10"`
	AcquisitionPerDay    *float64 `json:"acquisition_per_day,omitempty" validate:"omitnil,gte=0"`
	CostPerUserMonth     *float64 `json:"cost_per_user_month,omitempty" validate:"omitnil,gte=0"`
	OperatingMarginPct   *float64 `json:"operating_margin_pct,omitempty" validate:"omitnil,gte=0,lte=100"`
}

// ReportRequest selects a report role and its filters.
type ReportRequest struct {
	FilterRequest
	Role string `json:"role" param:"role" validate:"required,oneof=ceo cfo projections"`
}
