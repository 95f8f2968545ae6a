package report

import (
	"picpulse/internal/analytics"
	"picpulse/internal/charts"
	"picpulse/internal/dataset"
	"picpulse/pkg/contracts/domain"
)

// Section keys, stable across releases so exported sheet names do not move.
const (
	KeySegments        = "resgates_segmento"
	KeyWeekdays        = "resgates_dia_semana"
	KeyHourHeatmap     = "heatmap_hora_categoria"
	KeyAgeByCouponType = "faixa_etaria_tipo_cupom"
	KeySegmentByType   = "segmento_tipo_cupom"
	KeyDevices         = "dispositivos_app"

	KeyRevenueBySegment = "receita_segmento"
	KeyCouponVsPurchase = "cupom_x_compra"
	KeyTicketByStore    = "ticket_medio_loja"
	KeyValueHistogram   = "distribuicao_valor_cupom"

	KeyProjectedRevenue = "receita_projetada"
	KeyProjectedProfit  = "lucro_projetado"
	KeyProjectedUsers   = "usuarios_projetados"
	KeyProjectedTx      = "transacoes_projetadas"
)

// input is what every section computes from.
type input struct {
	tables     *dataset.Tables
	filters    analytics.Filters
	bins       int
	projection func() (analytics.Projection, error)
}

// result is what a section computes.
type result struct {
	data  analytics.Tabular
	chart charts.Spec
}

type sectionDef struct {
	key   string
	title string
	build func(in input) (result, error)
}

func seriesSection(key, title string, kind charts.Kind, q func(input) analytics.Series) sectionDef {
	return sectionDef{key: key, title: title, build: func(in input) (result, error) {
		s := q(in)
		return result{data: s, chart: charts.FromSeries(s, kind)}, nil
	}}
}

func pivotSection(key, title string, kind charts.Kind, q func(input) analytics.Pivot) sectionDef {
	return sectionDef{key: key, title: title, build: func(in input) (result, error) {
		p := q(in)
		return result{data: p, chart: charts.FromPivot(p, kind)}, nil
	}}
}

func projectionSection(key, title, valueTitle string, pick func(analytics.ProjectionMonth) float64) sectionDef {
	return sectionDef{key: key, title: title, build: func(in input) (result, error) {
		p, err := in.projection()
		if err != nil {
			return result{}, err
		}
		s := p.MonthlySeries(title, valueTitle, pick)
		return result{data: s, chart: charts.FromSeries(s, charts.KindLine)}, nil
	}}
}

var ceoSections = []sectionDef{
	seriesSection(KeySegments, "Resgates por segmento (Top 10)", charts.KindBar,
		func(in input) analytics.Series { return analytics.RedemptionsBySegment(in.tables, in.filters) }),
	seriesSection(KeyWeekdays, "Resgates por dia da semana", charts.KindBar,
		func(in input) analytics.Series { return analytics.RedemptionsByWeekday(in.tables, in.filters) }),
	pivotSection(KeyHourHeatmap, "Heatmap: hora do resgate x categoria", charts.KindHeatmap,
		func(in input) analytics.Pivot { return analytics.HourCategoryHeatmap(in.tables, in.filters) }),
	pivotSection(KeyAgeByCouponType, "Resgates por faixa etária e tipo de cupom", charts.KindBar,
		func(in input) analytics.Pivot { return analytics.AgeBracketByCouponType(in.tables, in.filters) }),
	pivotSection(KeySegmentByType, "Segmento da loja x Tipo de cupom", charts.KindHeatmap,
		func(in input) analytics.Pivot { return analytics.SegmentByCouponType(in.tables, in.filters) }),
	seriesSection(KeyDevices, "Dispositivos entre usuários com o app", charts.KindPie,
		func(in input) analytics.Series { return analytics.DevicesWithApp(in.tables) }),
}

var cfoSections = []sectionDef{
	seriesSection(KeyRevenueBySegment, "Receita total por segmento", charts.KindHBar,
		func(in input) analytics.Series { return analytics.RevenueBySegment(in.tables, in.filters) }),
	{key: KeyCouponVsPurchase, title: "Valor do cupom x valor da compra", build: func(in input) (result, error) {
		s := analytics.CouponVsPurchase(in.tables, in.filters)
		return result{data: s, chart: charts.FromScatter(s)}, nil
	}},
	seriesSection(KeyTicketByStore, "Valor médio de venda por loja", charts.KindBar,
		func(in input) analytics.Series { return analytics.AveragePurchaseByStore(in.tables, in.filters) }),
	{key: KeyValueHistogram, title: "Distribuição de valor dos cupons", build: func(in input) (result, error) {
		h := analytics.CouponValueHistogram(in.tables, in.filters, in.bins)
		return result{data: h, chart: charts.FromHistogram(h)}, nil
	}},
}

var projectionSections = []sectionDef{
	projectionSection(KeyProjectedRevenue, "Receita bruta mensal projetada", "receita_bruta",
		func(m analytics.ProjectionMonth) float64 { return m.GrossRevenue }),
	projectionSection(KeyProjectedProfit, "Lucro mensal projetado", "lucro",
		func(m analytics.ProjectionMonth) float64 { return m.Profit }),
	projectionSection(KeyProjectedUsers, "Usuários projetados", "usuarios",
		func(m analytics.ProjectionMonth) float64 { return m.Users }),
	projectionSection(KeyProjectedTx, "Transações por dia projetadas", "transacoes_dia",
		func(m analytics.ProjectionMonth) float64 { return m.TransactionsPerDay }),
}

func sectionsFor(role domain.ReportRole) []sectionDef {
	switch role {
	case domain.ReportRoleCEO:
		return ceoSections
	case domain.ReportRoleCFO:
		return cfoSections
	case domain.ReportRoleProjections:
		return projectionSections
	}
	return nil
}

func ceoKPIs(k analytics.CEOKPIs) []domain.KPI {
	return []domain.KPI{
		{Key: "total_resgates", Label: "Total de resgates", Value: float64(k.TotalRedemptions), Unit: domain.KPIUnitCount},
		{Key: "usuarios_ativos", Label: "Usuários ativos", Value: float64(k.ActiveUsers), Unit: domain.KPIUnitCount},
		{Key: "estabelecimentos", Label: "Estabelecimentos", Value: float64(k.Establishments), Unit: domain.KPIUnitCount},
		{Key: "ticket_medio", Label: "Ticket médio", Value: k.AverageTicket, Unit: domain.KPIUnitMoney},
	}
}

func cfoKPIs(k analytics.CFOKPIs) []domain.KPI {
	return []domain.KPI{
		{Key: "receita_total", Label: "Receita total", Value: k.TotalRevenue, Unit: domain.KPIUnitMoney},
		{Key: "repasse_picmoney", Label: "Repasse PicMoney", Value: k.TotalPicMoney, Unit: domain.KPIUnitMoney},
		{Key: "receita_liquida", Label: "Receita líquida", Value: k.NetRevenue, Unit: domain.KPIUnitMoney},
		{Key: "valor_compras", Label: "Valor total de compras", Value: k.TotalPurchase, Unit: domain.KPIUnitMoney},
		{Key: "capturas", Label: "Capturas", Value: float64(k.Captures), Unit: domain.KPIUnitCount},
		{Key: "compra_media", Label: "Compra média", Value: k.AveragePurchase, Unit: domain.KPIUnitMoney},
	}
}

func projectionKPIs(p analytics.Projection) []domain.KPI {
	b, s := p.Baseline, p.Summary
	return []domain.KPI{
		{Key: "usuarios_base", Label: "Usuários na base", Value: float64(b.UniqueUsers), Unit: domain.KPIUnitCount},
		{Key: "transacoes_dia_base", Label: "Transações por dia", Value: b.TransactionsPerDay, Unit: domain.KPIUnitRatio},
		{Key: "ticket_medio_base", Label: "Ticket médio", Value: b.AverageTicket, Unit: domain.KPIUnitMoney},
		{Key: "receita_projetada", Label: "Receita bruta projetada", Value: s.GrossRevenue, Unit: domain.KPIUnitMoney},
		{Key: "lucro_projetado", Label: "Lucro projetado", Value: s.Profit, Unit: domain.KPIUnitMoney},
		{Key: "margem_projetada", Label: "Margem de lucro", Value: s.ProfitMargin, Unit: domain.KPIUnitPercent},
		{Key: "usuarios_finais", Label: "Usuários ao final", Value: s.FinalUsers, Unit: domain.KPIUnitCount},
	}
}
