package analytics

import (
	"math"

	"picpulse/internal/dataset"
)

// DefaultHistogramBins is the bin count used when none is given.
const DefaultHistogramBins = 20

// RevenueBySegment sums coupon value per category, ascending for a horizontal bar.
func RevenueBySegment(t *dataset.Tables, f Filters) Series {
	s := Series{
		Name:       "Receita total por segmento",
		LabelTitle: dataset.ColCategory,
		ValueTitle: dataset.ColCouponValue,
	}
	if !t.Transactions.Capabilities().Has(dataset.CapCategory | dataset.CapCouponValue) {
		return s
	}

	sums := make(map[string]float64)
	for _, tx := range transactions(t, f) {
		if tx.Category == "" || tx.CouponValue == nil {
			continue
		}
		sums[tx.Category] += *tx.CouponValue
	}
	s.Labels, s.Values = sortedSeries(sums, ascending, 0)
	return s
}

// CouponVsPurchase pairs coupon and purchase values of each capture and fits
// an OLS trendline through them.
func CouponVsPurchase(t *dataset.Tables, f Filters) Scatter {
	s := Scatter{
		Name:   "Relacionamento: valor do cupom x valor final da compra",
		XTitle: dataset.ColCouponValue,
		YTitle: dataset.ColPurchaseValue,
	}
	if !t.Captures.Capabilities().Has(dataset.CapCouponValue | dataset.CapPurchaseValue) {
		return s
	}

	for _, vc := range captures(t, f) {
		if vc.CouponValue == nil || vc.PurchaseValue == nil {
			continue
		}
		s.Points = append(s.Points, Point{X: *vc.CouponValue, Y: *vc.PurchaseValue})
	}
	s.Trend = FitOLS(s.Points)
	return s
}

// FitOLS fits y = intercept + slope*x by least squares. The result is not
// valid with fewer than two points or when every x is equal.
func FitOLS(points []Point) Trendline {
	n := float64(len(points))
	if len(points) < 2 {
		return Trendline{}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy, syy float64
	for _, p := range points {
		dx, dy := p.X-meanX, p.Y-meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return Trendline{}
	}

	slope := sxy / sxx
	tl := Trendline{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
		Valid:     true,
	}

	if syy == 0 {
		tl.RSquared = 1
		return tl
	}
	var ssRes float64
	for _, p := range points {
		r := p.Y - tl.At(p.X)
		ssRes += r * r
	}
	tl.RSquared = math.Max(0, 1-ssRes/syy)
	return tl
}

// AveragePurchaseByStore averages purchase value per store, descending.
func AveragePurchaseByStore(t *dataset.Tables, f Filters) Series {
	s := Series{
		Name:       "Valor médio de venda por loja",
		LabelTitle: dataset.ColStoreName,
		ValueTitle: dataset.ColPurchaseValue,
	}
	if !t.Captures.Capabilities().Has(dataset.CapStoreName | dataset.CapPurchaseValue) {
		return s
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, vc := range captures(t, f) {
		if vc.StoreName == "" || vc.PurchaseValue == nil {
			continue
		}
		sums[vc.StoreName] += *vc.PurchaseValue
		counts[vc.StoreName]++
	}

	means := make(map[string]float64, len(sums))
	for store, sum := range sums {
		means[store] = mean(sum, counts[store])
	}
	s.Labels, s.Values = sortedSeries(means, descending, 0)
	return s
}

// CouponValueHistogram buckets redeemed coupon values into equal-width bins.
// A non-positive bins uses DefaultHistogramBins.
func CouponValueHistogram(t *dataset.Tables, f Filters, bins int) Histogram {
	h := Histogram{
		Name:       "Distribuição de valor dos cupons resgatados",
		ValueTitle: dataset.ColCouponValue,
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if !t.Transactions.Capabilities().Has(dataset.CapCouponValue) {
		return h
	}

	var values []float64
	for _, tx := range transactions(t, f) {
		if tx.CouponValue != nil {
			values = append(values, *tx.CouponValue)
		}
	}
	h.Bins = equalWidthBins(values, bins)
	return h
}

func equalWidthBins(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// ComputeCFOKPIs computes the headline numbers of the CFO view.
func ComputeCFOKPIs(t *dataset.Tables, f Filters) CFOKPIs {
	var k CFOKPIs
	for _, tx := range transactions(t, f) {
		if tx.CouponValue != nil {
			k.TotalRevenue += *tx.CouponValue
		}
		if tx.PicMoneyShare != nil {
			k.TotalPicMoney += *tx.PicMoneyShare
		}
	}
	k.NetRevenue = k.TotalRevenue - k.TotalPicMoney

	var purchases int
	for _, vc := range captures(t, f) {
		k.Captures++
		if vc.PurchaseValue != nil {
			k.TotalPurchase += *vc.PurchaseValue
			purchases++
		}
	}
	k.AveragePurchase = mean(k.TotalPurchase, purchases)
	return k
}
