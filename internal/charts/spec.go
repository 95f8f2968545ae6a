package charts

import (
	"fmt"
	"slices"

	"picpulse/internal/analytics"
)

// Kind is the visual form of a chart.
type Kind string

const (
	KindBar       Kind = "bar"
	KindHBar      Kind = "hbar"
	KindScatter   Kind = "scatter"
	KindHeatmap   Kind = "heatmap"
	KindPie       Kind = "pie"
	KindHistogram Kind = "histogram"
	KindLine      Kind = "line"
)

// Dataset is one plotted series. Values align with Spec.Labels; Points is
// only used by scatter charts.
type Dataset struct {
	Name   string            `json:"name"`
	Values []float64         `json:"values,omitempty"`
	Points []analytics.Point `json:"points,omitempty"`
}

// Spec describes a chart independently of the renderer.
type Spec struct {
	Kind   Kind      `json:"kind"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	Labels []string  `json:"labels"`
	Series []Dataset `json:"series"`
}

// Empty reports whether the chart has nothing to draw.
func (s Spec) Empty() bool {
	for _, d := range s.Series {
		if len(d.Values) > 0 || len(d.Points) > 0 {
			return false
		}
	}
	return true
}

// FromSeries charts a one-dimensional aggregate as a single dataset.
func FromSeries(s analytics.Series, kind Kind) Spec {
	return Spec{
		Kind:   kind,
		Title:  s.Name,
		XLabel: s.LabelTitle,
		YLabel: s.ValueTitle,
		Labels: slices.Clone(s.Labels),
		Series: []Dataset{{Name: s.ValueTitle, Values: slices.Clone(s.Values)}},
	}
}

// FromPivot charts a pivot with one dataset per column, labelled by rows.
func FromPivot(p analytics.Pivot, kind Kind) Spec {
	spec := Spec{
		Kind:   kind,
		Title:  p.Name,
		XLabel: p.RowTitle,
		YLabel: p.ColTitle,
		Labels: slices.Clone(p.Rows),
	}
	for j, col := range p.Cols {
		values := make([]float64, len(p.Rows))
		for i := range p.Rows {
			values[i] = p.Cells[i][j]
		}
		spec.Series = append(spec.Series, Dataset{Name: col, Values: values})
	}
	return spec
}

// FromScatter charts the observed points and, when the fit is valid, the
// trendline drawn across the observed x range.
func FromScatter(s analytics.Scatter) Spec {
	spec := Spec{
		Kind:   KindScatter,
		Title:  s.Name,
		XLabel: s.XTitle,
		YLabel: s.YTitle,
		Series: []Dataset{{Name: "observado", Points: slices.Clone(s.Points)}},
	}
	if !s.Trend.Valid || len(s.Points) == 0 {
		return spec
	}

	lo, hi := s.Points[0].X, s.Points[0].X
	for _, p := range s.Points[1:] {
		lo, hi = min(lo, p.X), max(hi, p.X)
	}
	spec.Series = append(spec.Series, Dataset{
		Name: fmt.Sprintf("tendência (R² = %.2f)", s.Trend.RSquared),
		Points: []analytics.Point{
			{X: lo, Y: s.Trend.At(lo)},
			{X: hi, Y: s.Trend.At(hi)},
		},
	})
	return spec
}

// FromHistogram charts bin counts labelled by their ranges.
func FromHistogram(h analytics.Histogram) Spec {
	spec := Spec{
		Kind:   KindHistogram,
		Title:  h.Name,
		XLabel: h.ValueTitle,
		YLabel: "contagem",
	}
	counts := make([]float64, len(h.Bins))
	for i, b := range h.Bins {
		spec.Labels = append(spec.Labels, fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper))
		counts[i] = float64(b.Count)
	}
	spec.Series = []Dataset{{Name: "contagem", Values: counts}}
	return spec
}
