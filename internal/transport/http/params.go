package http

import (
	"net/http"
	"strings"
	"time"

	"picpulse/internal/analytics"
	apierrors "picpulse/internal/errors"
	"picpulse/internal/middleware"
	api "picpulse/pkg/contracts/api/v1"
)

// filterRequest reads the filter query parameters.
func filterRequest(r *http.Request) api.FilterRequest {
	q := r.URL.Query()
	get := func(name string) string { return strings.TrimSpace(q.Get(name)) }
	return api.FilterRequest{
		Category:     get("categoria"),
		CouponType:   get("tipo_cupom"),
		Neighborhood: get("bairro"),
		Start:        get("inicio"),
		End:          get("fim"),
	}
}

// parseFilters validates the filter query parameters and converts them.
// Dates are DD/MM/YYYY; a malformed one is reported by parameter name.
func parseFilters(r *http.Request, v *middleware.ValidationMiddleware) (analytics.Filters, error) {
	req := filterRequest(r)
	if err := v.ValidateStruct(req); err != nil {
		return analytics.Filters{}, err
	}

	f := analytics.Filters{
		Category:     req.Category,
		CouponType:   req.CouponType,
		Neighborhood: req.Neighborhood,
	}
	var err error
	if f.Start, err = parseDate("inicio", req.Start); err != nil {
		return analytics.Filters{}, err
	}
	if f.End, err = parseDate("fim", req.End); err != nil {
		return analytics.Filters{}, err
	}
	if err := f.Validate(); err != nil {
		return analytics.Filters{}, apierrors.ErrValidation("fim", err.Error())
	}
	return f, nil
}

func parseDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(api.DateLayout, v)
	if err != nil {
		return nil, apierrors.InvalidParameter(name, err)
	}
	return &t, nil
}

// projectionParams overlays the request onto defaults.
func projectionParams(req api.ProjectionRequest, defaults analytics.ProjectionParams) analytics.ProjectionParams {
	p := defaults
	if req.HorizonMonths != nil {
		p.HorizonMonths = *req.HorizonMonths
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&p.UserGrowthPct, req.UserGrowthPct)
	setFloat(&p.TransactionGrowthPct, req.TransactionGrowthPct)
	setFloat(&p.TicketGrowthPct, req.TicketGrowthPct)
	setFloat(&p.AcquisitionPerDay, req.AcquisitionPerDay)
	setFloat(&p.CostPerUserMonth, req.CostPerUserMonth)
	setFloat(&p.OperatingMarginPct, req.OperatingMarginPct)
	return p
}
