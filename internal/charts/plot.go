package charts

import (
	"bytes"
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNothingToPlot is returned for a spec without data.
var ErrNothingToPlot = errors.New("chart has no data to plot")

// PlotRenderer draws chart specs as PNG images offline with gonum/plot.
// Width and Height are in pixels.
type PlotRenderer struct {
	Width  int
	Height int
}

// NewPlotRenderer returns a PNG renderer with the default size.
func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{Width: DefaultWidth, Height: DefaultHeight}
}

// PNG renders spec and returns the encoded image.
func (r *PlotRenderer) PNG(spec Spec) ([]byte, error) {
	if spec.Empty() {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Legend.Top = true

	var err error
	switch spec.Kind {
	case KindScatter:
		err = addScatter(p, spec)
	case KindLine:
		err = addLines(p, spec)
	case KindHBar:
		err = addBars(p, spec, true, false)
	case KindHeatmap:
		err = addBars(p, spec, false, true)
	default:
		// Pie and histogram are drawn as bars; gonum/plot has no pie plotter.
		err = addBars(p, spec, false, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to plot %q: %w", spec.Title, err)
	}
	p.Add(plotter.NewGrid())

	w, h := r.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// size converts the pixel size to plot lengths at the PNG canvas' 96 DPI.
func (r *PlotRenderer) size() (vg.Length, vg.Length) {
	width, height := r.Width, r.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return vg.Points(float64(width) * 0.75), vg.Points(float64(height) * 0.75)
}

func addBars(p *plot.Plot, spec Spec, horizontal, stacked bool) error {
	var drawn []Dataset
	for _, d := range spec.Series {
		if len(d.Values) > 0 {
			drawn = append(drawn, d)
		}
	}

	width := vg.Points(30)
	if !stacked && len(drawn) > 1 {
		width = max(vg.Points(4), vg.Points(30)/vg.Length(len(drawn)))
	}

	var below *plotter.BarChart
	for i, d := range drawn {
		bars, err := plotter.NewBarChart(plotter.Values(d.Values), width)
		if err != nil {
			return fmt.Errorf("series %q: %w", d.Name, err)
		}
		bars.Horizontal = horizontal
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		if stacked {
			if below != nil {
				bars.StackOn(below)
			}
			below = bars
		} else if len(drawn) > 1 {
			bars.Offset = vg.Length(float64(i)-float64(len(drawn)-1)/2) * width
		}
		p.Add(bars)
		if len(drawn) > 1 {
			p.Legend.Add(d.Name, bars)
		}
	}

	if horizontal {
		p.NominalY(spec.Labels...)
	} else {
		p.NominalX(spec.Labels...)
		if len(spec.Labels) > 6 {
			p.X.Tick.Label.Rotation = 0.8
			p.X.Tick.Label.XAlign = draw.XRight
			p.X.Tick.Label.YAlign = draw.YCenter
		}
	}
	return nil
}

func addLines(p *plot.Plot, spec Spec) error {
	for i, d := range spec.Series {
		if len(d.Values) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(d.Values))
		for j, v := range d.Values {
			xys[j] = plotter.XY{X: float64(j), Y: v}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("series %q: %w", d.Name, err)
		}
		line.Color = plotutil.Color(i)
		points.GlyphStyle.Color = plotutil.Color(i)
		p.Add(line, points)
		if len(spec.Series) > 1 {
			p.Legend.Add(d.Name, line)
		}
	}
	p.NominalX(spec.Labels...)
	return nil
}

// addScatter draws the first dataset as points and any further dataset,
// the trendline, as a line.
func addScatter(p *plot.Plot, spec Spec) error {
	for i, d := range spec.Series {
		if len(d.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(d.Points))
		for j, pt := range d.Points {
			xys[j] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		if i == 0 {
			s, err := plotter.NewScatter(xys)
			if err != nil {
				return fmt.Errorf("series %q: %w", d.Name, err)
			}
			s.GlyphStyle.Color = plotutil.Color(0)
			s.GlyphStyle.Radius = vg.Points(2)
			s.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(s)
			p.Legend.Add(d.Name, s)
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("series %q: %w", d.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(d.Name, line)
	}
	return nil
}
