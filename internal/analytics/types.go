package analytics

import (
	"strconv"
	"time"
)

// Tabular is implemented by every aggregate so it can be exported as a table.
type Tabular interface {
	Header() []string
	Records() [][]string
}

// Series is a one-dimensional aggregate with one value per label, in display order.
type Series struct {
	Name       string    `json:"name"`
	LabelTitle string    `json:"label_title"`
	ValueTitle string    `json:"value_title"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
}

// Len returns the number of labels.
func (s Series) Len() int {
	return len(s.Labels)
}

// Value returns the value of label.
func (s Series) Value(label string) (float64, bool) {
	for i, l := range s.Labels {
		if l == label {
			return s.Values[i], true
		}
	}
	return 0, false
}

// AsMap returns the series keyed by label.
func (s Series) AsMap() map[string]float64 {
	m := make(map[string]float64, len(s.Labels))
	for i, l := range s.Labels {
		m[l] = s.Values[i]
	}
	return m
}

func (s Series) Header() []string {
	return []string{s.LabelTitle, s.ValueTitle}
}

func (s Series) Records() [][]string {
	out := make([][]string, len(s.Labels))
	for i, l := range s.Labels {
		out[i] = []string{l, formatFloat(s.Values[i])}
	}
	return out
}

// Pivot is a two-dimensional aggregate. Absent combinations are zero.
type Pivot struct {
	Name     string      `json:"name"`
	RowTitle string      `json:"row_title"`
	ColTitle string      `json:"col_title"`
	Rows     []string    `json:"rows"`
	Cols     []string    `json:"cols"`
	Cells    [][]float64 `json:"cells"`
}

// Cell returns the value at (row, col), or 0 when either label is unknown.
func (p Pivot) Cell(row, col string) float64 {
	ri, ci := -1, -1
	for i, r := range p.Rows {
		if r == row {
			ri = i
			break
		}
	}
	for i, c := range p.Cols {
		if c == col {
			ci = i
			break
		}
	}
	if ri < 0 || ci < 0 {
		return 0
	}
	return p.Cells[ri][ci]
}

// Total sums every cell.
func (p Pivot) Total() float64 {
	var total float64
	for _, row := range p.Cells {
		for _, v := range row {
			total += v
		}
	}
	return total
}

func (p Pivot) Header() []string {
	return append([]string{p.RowTitle + " / " + p.ColTitle}, p.Cols...)
}

func (p Pivot) Records() [][]string {
	out := make([][]string, len(p.Rows))
	for i, r := range p.Rows {
		rec := make([]string, 0, len(p.Cols)+1)
		rec = append(rec, r)
		for _, v := range p.Cells[i] {
			rec = append(rec, formatFloat(v))
		}
		out[i] = rec
	}
	return out
}

// Point is one (x, y) observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trendline is an ordinary least squares fit of y on x.
type Trendline struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Valid     bool    `json:"valid"`
}

// At evaluates the line at x.
func (t Trendline) At(x float64) float64 {
	return t.Intercept + t.Slope*x
}

// Scatter is a set of points with its fitted trendline.
type Scatter struct {
	Name   string    `json:"name"`
	XTitle string    `json:"x_title"`
	YTitle string    `json:"y_title"`
	Points []Point   `json:"points"`
	Trend  Trendline `json:"trend"`
}

func (s Scatter) Header() []string {
	return []string{s.XTitle, s.YTitle}
}

func (s Scatter) Records() [][]string {
	out := make([][]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = []string{formatFloat(p.X), formatFloat(p.Y)}
	}
	return out
}

// Bin is one histogram bucket. Lower is inclusive; Upper is exclusive except
// for the last bin.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width distribution.
type Histogram struct {
	Name       string `json:"name"`
	ValueTitle string `json:"value_title"`
	Bins       []Bin  `json:"bins"`
}

// Total returns the number of observations.
func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

func (h Histogram) Header() []string {
	return []string{"de", "ate", "contagem"}
}

func (h Histogram) Records() [][]string {
	out := make([][]string, len(h.Bins))
	for i, b := range h.Bins {
		out[i] = []string{formatFloat(b.Lower), formatFloat(b.Upper), strconv.Itoa(b.Count)}
	}
	return out
}

// CEOKPIs are the headline numbers of the CEO view.
type CEOKPIs struct {
	TotalRedemptions int     `json:"total_redemptions"`
	ActiveUsers      int     `json:"active_users"`
	Establishments   int     `json:"establishments"`
	AverageTicket    float64 `json:"average_ticket"`
}

// CFOKPIs are the headline numbers of the CFO view.
type CFOKPIs struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalPicMoney   float64 `json:"total_picmoney_share"`
	NetRevenue      float64 `json:"net_revenue"`
	TotalPurchase   float64 `json:"total_purchase"`
	Captures        int     `json:"captures"`
	AveragePurchase float64 `json:"average_purchase"`
}

// FilterOptions are the values the filter controls can offer.
type FilterOptions struct {
	Categories    []string   `json:"categories"`
	CouponTypes   []string   `json:"coupon_types"`
	Neighborhoods []string   `json:"neighborhoods"`
	MinDate       *time.Time `json:"min_date,omitempty"`
	MaxDate       *time.Time `json:"max_date,omitempty"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
