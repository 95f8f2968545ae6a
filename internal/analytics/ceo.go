package analytics

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"picpulse/internal/dataset"
)

const (
	// TopSegments caps the redemptions-by-segment ranking.
	TopSegments = 10
	// TopHeatmapCategories caps the categories shown in the hour heatmap.
	TopHeatmapCategories = 15
)

// RedemptionsBySegment counts redeemed coupons per category, keeping the top 10.
func RedemptionsBySegment(t *dataset.Tables, f Filters) Series {
	s := Series{
		Name:       "Resgates por segmento (Top 10)",
		LabelTitle: dataset.ColCategory,
		ValueTitle: "resgates",
	}
	if !t.Transactions.Capabilities().Has(dataset.CapCategory | dataset.CapCouponID) {
		return s
	}

	counts := make(map[string]float64)
	for _, tx := range transactions(t, f) {
		if tx.Category == "" || tx.CouponID == "" {
			continue
		}
		counts[tx.Category]++
	}
	s.Labels, s.Values = sortedSeries(counts, descending, TopSegments)
	return s
}

// RedemptionsByWeekday counts redeemed coupons per weekday name.
func RedemptionsByWeekday(t *dataset.Tables, f Filters) Series {
	s := Series{
		Name:       "Resgates por dia da semana",
		LabelTitle: "dia_semana",
		ValueTitle: "resgates",
	}
	if !t.Transactions.Capabilities().Has(dataset.CapWeekday | dataset.CapCouponID) {
		return s
	}

	counts := make(map[string]float64)
	for _, tx := range transactions(t, f) {
		if tx.Weekday == "" || tx.CouponID == "" {
			continue
		}
		counts[tx.Weekday]++
	}
	s.Labels, s.Values = sortedSeries(counts, descending, 0)
	return s
}

// HourCategoryHeatmap counts redemptions per (hour, category) for the 15
// busiest categories. Rows are hours, columns are categories.
func HourCategoryHeatmap(t *dataset.Tables, f Filters) Pivot {
	p := Pivot{
		Name:     "Heatmap: hora do resgate x categoria",
		RowTitle: "hora",
		ColTitle: dataset.ColCategory,
	}
	if !t.Transactions.Capabilities().Has(dataset.CapHour | dataset.CapCategory | dataset.CapCouponID) {
		return p
	}

	counts := make(map[pairKey]float64)
	totals := make(map[string]float64)
	hours := make(map[int]bool)
	for _, tx := range transactions(t, f) {
		if tx.Hour == nil || tx.Category == "" || tx.CouponID == "" {
			continue
		}
		counts[pairKey{hourLabel(*tx.Hour), tx.Category}]++
		totals[tx.Category]++
		hours[*tx.Hour] = true
	}

	top, _ := sortedSeries(totals, descending, TopHeatmapCategories)
	slices.Sort(top)

	var hourRows []string
	for h := 0; h < 24; h++ {
		if !hours[h] {
			continue
		}
		label := hourLabel(h)
		for _, c := range top {
			if counts[pairKey{label, c}] > 0 {
				hourRows = append(hourRows, label)
				break
			}
		}
	}

	p.Rows, p.Cols = hourRows, top
	p.Cells = buildPivot(counts, hourRows, top)
	return p
}

func hourLabel(h int) string {
	return fmt.Sprintf("%02d", h)
}

// AgeBracketByCouponType joins transactions to players on the phone key and
// counts redemptions per (age bracket, coupon type). A phone matching several
// player rows counts once per row, and rows without a bracket are dropped.
func AgeBracketByCouponType(t *dataset.Tables, f Filters) Pivot {
	p := Pivot{
		Name:     "Resgates por faixa etária e tipo de cupom",
		RowTitle: "faixa_etaria",
		ColTitle: dataset.ColCouponType,
	}
	for _, b := range dataset.AgeBrackets {
		p.Rows = append(p.Rows, string(b))
	}
	if !t.Transactions.Capabilities().Has(dataset.CapPhone|dataset.CapCouponType|dataset.CapCouponID) ||
		!t.Players.Capabilities().Has(dataset.CapPhone|dataset.CapAgeBracket) {
		p.Cells = buildPivot(nil, p.Rows, nil)
		return p
	}

	counts := make(map[pairKey]float64)
	types := make(map[string]bool)
	for _, tx := range transactions(t, f) {
		if tx.Phone == "" || tx.CouponType == "" || tx.CouponID == "" {
			continue
		}
		for _, b := range t.PlayerBrackets(tx.Phone) {
			if b == "" {
				continue
			}
			counts[pairKey{string(b), tx.CouponType}]++
			types[tx.CouponType] = true
		}
	}

	p.Cols = sortedKeys(types)
	p.Cells = buildPivot(counts, p.Rows, p.Cols)
	return p
}

// SegmentByCouponType counts redemptions with coupon types as rows and
// categories as columns.
func SegmentByCouponType(t *dataset.Tables, f Filters) Pivot {
	p := Pivot{
		Name:     "Segmento da loja x Tipo de cupom",
		RowTitle: dataset.ColCouponType,
		ColTitle: dataset.ColCategory,
	}
	if !t.Transactions.Capabilities().Has(dataset.CapCategory | dataset.CapCouponType | dataset.CapCouponID) {
		return p
	}

	counts := make(map[pairKey]float64)
	types := make(map[string]bool)
	categories := make(map[string]bool)
	for _, tx := range transactions(t, f) {
		if tx.Category == "" || tx.CouponType == "" || tx.CouponID == "" {
			continue
		}
		counts[pairKey{tx.CouponType, tx.Category}]++
		types[tx.CouponType] = true
		categories[tx.Category] = true
	}

	p.Rows, p.Cols = sortedKeys(types), sortedKeys(categories)
	p.Cells = buildPivot(counts, p.Rows, p.Cols)
	return p
}

// DevicesWithApp counts distinct users per device type among pedestrians that
// have the app installed. Transaction filters do not apply.
func DevicesWithApp(t *dataset.Tables) Series {
	s := Series{
		Name:       "Distribuição de dispositivos entre usuários que têm o app",
		LabelTitle: dataset.ColDeviceType,
		ValueTitle: "usuarios",
	}
	if !t.Pedestrians.Capabilities().Has(dataset.CapDeviceType | dataset.CapHasApp | dataset.CapPhone) {
		return s
	}

	users := make(map[string]*roaring.Bitmap)
	for pf := range t.Pedestrians.All() {
		if pf.DeviceType == "" || !dataset.HasAppInstalled(pf.HasApp) {
			continue
		}
		id, ok := t.PhoneID(pf.Phone)
		if !ok {
			continue
		}
		bm, exists := users[pf.DeviceType]
		if !exists {
			bm = roaring.New()
			users[pf.DeviceType] = bm
		}
		bm.Add(id)
	}

	counts := make(map[string]float64, len(users))
	for device, bm := range users {
		counts[device] = float64(bm.GetCardinality())
	}
	s.Labels, s.Values = sortedSeries(counts, descending, 0)
	return s
}

// ComputeCEOKPIs computes the headline numbers of the CEO view.
func ComputeCEOKPIs(t *dataset.Tables, f Filters) CEOKPIs {
	rows := transactions(t, f)

	users := roaring.New()
	establishments := make(map[string]struct{})
	var ticketSum float64
	var ticketN int
	for _, tx := range rows {
		if id, ok := t.PhoneID(tx.Phone); ok {
			users.Add(id)
		}
		if tx.Establishment != "" {
			establishments[tx.Establishment] = struct{}{}
		}
		if tx.CouponValue != nil {
			ticketSum += *tx.CouponValue
			ticketN++
		}
	}

	return CEOKPIs{
		TotalRedemptions: len(rows),
		ActiveUsers:      int(users.GetCardinality()),
		Establishments:   len(establishments),
		AverageTicket:    mean(ticketSum, ticketN),
	}
}
