package exporter

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"picpulse/pkg/contracts/domain"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatKPI renders a KPI value for people: money as "R$ 1.234,56",
// percentages with two decimals and counts as whole numbers.
func FormatKPI(k domain.KPI) string {
	switch k.Unit {
	case domain.KPIUnitMoney:
		return ptBR.Sprintf("R$ %.2f", k.Value)
	case domain.KPIUnitPercent:
		return ptBR.Sprintf("%.2f%%", k.Value)
	case domain.KPIUnitCount:
		return ptBR.Sprintf("%d", int64(math.Round(k.Value)))
	default:
		return ptBR.Sprintf("%.2f", k.Value)
	}
}
