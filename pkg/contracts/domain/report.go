package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReportRole selects which dashboard a report reproduces
type ReportRole string

const (
	ReportRoleCEO         ReportRole = "ceo"
	ReportRoleCFO         ReportRole = "cfo"
	ReportRoleProjections ReportRole = "projections"
)

// ReportRoles lists every role in export order
func ReportRoles() []ReportRole {
	return []ReportRole{ReportRoleCEO, ReportRoleCFO, ReportRoleProjections}
}

// ParseReportRole accepts a role name in any case
func ParseReportRole(s string) (ReportRole, error) {
	role := ReportRole(strings.ToLower(strings.TrimSpace(s)))
	switch role {
	case ReportRoleCEO, ReportRoleCFO, ReportRoleProjections:
		return role, nil
	}
	return "", fmt.Errorf("unknown report role %q", s)
}

// Title returns the display title of the role's report
func (r ReportRole) Title() string {
	switch r {
	case ReportRoleCEO:
		return "Dashboard CEO"
	case ReportRoleCFO:
		return "Dashboard CFO"
	case ReportRoleProjections:
		return "Projeções financeiras"
	}
	return string(r)
}

// ReportFormat defines the format of an exported report
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatExcel ReportFormat = "xlsx"
	ReportFormatCSV   ReportFormat = "csv"
)

// KPIUnit tells renderers how to display a KPI value
type KPIUnit string

const (
	KPIUnitCount   KPIUnit = "count"
	KPIUnitMoney   KPIUnit = "brl"
	KPIUnitPercent KPIUnit = "percent"
	KPIUnitRatio   KPIUnit = "ratio"
)

// KPI is one headline number of a report
type KPI struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  KPIUnit `json:"unit"`
}

// ReportFilters echoes the filters a report was built with
type ReportFilters struct {
	Category     string     `json:"categoria,omitempty"`
	CouponType   string     `json:"tipo_cupom,omitempty"`
	Neighborhood string     `json:"bairro,omitempty"`
	Start        *time.Time `json:"inicio,omitempty"`
	End          *time.Time `json:"fim,omitempty"`
}

// OmittedSection records a section left out of a report
type OmittedSection struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// ReportMetadata contains metadata about a built report
type ReportMetadata struct {
	ProcessingTime   time.Duration `json:"processing_time"`
	DataSources      []string      `json:"data_sources"`
	IncludedSections []string      `json:"included_sections"`
	Version          string        `json:"version"`
}
