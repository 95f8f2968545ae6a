package report

import (
	"time"

	"picpulse/internal/analytics"
	"picpulse/internal/charts"
	"picpulse/pkg/contracts/domain"
)

// Table is the exportable data behind a section.
type Table struct {
	Header  []string   `json:"header"`
	Records [][]string `json:"records"`
}

func tableOf(t analytics.Tabular) Table {
	return Table{Header: t.Header(), Records: t.Records()}
}

// Section is one chart of a report together with its data. Image holds the
// rendered PNG and is only carried into workbooks.
type Section struct {
	Key      string      `json:"key"`
	Title    string      `json:"title"`
	Chart    charts.Spec `json:"chart"`
	ImageURL string      `json:"image_url,omitempty"`
	Image    []byte      `json:"-"`
	HasImage bool        `json:"has_image"`
	Table    Table       `json:"table"`
}

// Report is the exported view of one dashboard.
type Report struct {
	ID          string                  `json:"id"`
	Role        domain.ReportRole       `json:"role"`
	Title       string                  `json:"title"`
	GeneratedAt time.Time               `json:"generated_at"`
	Filters     domain.ReportFilters    `json:"filters"`
	KPIs        []domain.KPI            `json:"kpis"`
	Sections    []Section               `json:"sections"`
	Omitted     []domain.OmittedSection `json:"omitted,omitempty"`
	Metadata    domain.ReportMetadata   `json:"metadata"`
}

// Section returns the section with key.
func (r *Report) Section(key string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

func filtersOf(f analytics.Filters) domain.ReportFilters {
	return domain.ReportFilters{
		Category:     f.Category,
		CouponType:   f.CouponType,
		Neighborhood: f.Neighborhood,
		Start:        f.Start,
		End:          f.End,
	}
}
