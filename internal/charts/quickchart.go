package charts

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	quickchartgo "github.com/henomis/quickchart-go"

	"picpulse/internal/analytics"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 450

	// MaxURLPoints caps the scatter points encoded into an image URL.
	MaxURLPoints = 300
)

// Renderer turns chart specs into quickchart.io image URLs. Building a URL
// does not touch the network.
type Renderer struct {
	Width  int
	Height int
	// Host replaces the public quickchart host, for self-hosted instances.
	Host string
}

// NewRenderer returns a renderer with the default size.
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// ImageURL renders spec with the default renderer.
func ImageURL(spec Spec) (string, error) {
	return NewRenderer().ImageURL(spec)
}

// ImageURL returns the quickchart image URL for spec.
func (r *Renderer) ImageURL(spec Spec) (string, error) {
	cfg, err := json.Marshal(chartJSConfig(spec))
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart config: %w", err)
	}

	qc := quickchartgo.New()
	qc.Config = string(cfg)
	raw, err := qc.GetUrl()
	if err != nil {
		return "", fmt.Errorf("failed to build chart url for %q: %w", spec.Title, err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse chart url: %w", err)
	}
	q := u.Query()
	if r.Width > 0 {
		q.Set("w", strconv.Itoa(r.Width))
	}
	if r.Height > 0 {
		q.Set("h", strconv.Itoa(r.Height))
	}
	u.RawQuery = q.Encode()
	if r.Host != "" {
		u.Host = r.Host
	}
	return u.String(), nil
}

// Chart.js 2 configuration, the version quickchart renders by default.
type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels,omitempty"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label         string  `json:"label"`
	Data          []any   `json:"data"`
	Fill          *bool   `json:"fill,omitempty"`
	ShowLine      bool    `json:"showLine,omitempty"`
	BarPercentage float64 `json:"barPercentage,omitempty"`
}

type chartOptions struct {
	Title  chartTitle  `json:"title"`
	Legend chartLegend `json:"legend"`
	Scales *scales     `json:"scales,omitempty"`
}

type chartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type chartLegend struct {
	Display bool `json:"display"`
}

type scales struct {
	XAxes []axis `json:"xAxes"`
	YAxes []axis `json:"yAxes"`
}

type axis struct {
	Stacked    bool       `json:"stacked,omitempty"`
	ScaleLabel scaleLabel `json:"scaleLabel"`
}

type scaleLabel struct {
	Display     bool   `json:"display"`
	LabelString string `json:"labelString"`
}

func chartJSConfig(spec Spec) chartConfig {
	cfg := chartConfig{
		Type: chartJSType(spec.Kind),
		Data: chartData{Labels: spec.Labels},
		Options: chartOptions{
			Title:  chartTitle{Display: spec.Title != "", Text: spec.Title},
			Legend: chartLegend{Display: len(spec.Series) > 1 || spec.Kind == KindPie},
		},
	}

	noFill := false
	for _, s := range spec.Series {
		ds := chartDataset{Label: s.Name}
		if spec.Kind == KindScatter {
			for _, p := range samplePoints(s.Points, MaxURLPoints) {
				ds.Data = append(ds.Data, p)
			}
			// The trendline is the second dataset.
			if len(cfg.Data.Datasets) > 0 {
				ds.ShowLine, ds.Fill = true, &noFill
			}
		} else {
			for _, v := range s.Values {
				ds.Data = append(ds.Data, v)
			}
		}
		switch spec.Kind {
		case KindHistogram:
			ds.BarPercentage = 1
		case KindLine:
			ds.Fill = &noFill
		}
		if ds.Data == nil {
			ds.Data = []any{}
		}
		cfg.Data.Datasets = append(cfg.Data.Datasets, ds)
	}

	if spec.Kind != KindPie {
		x := axis{ScaleLabel: scaleLabel{Display: spec.XLabel != "", LabelString: spec.XLabel}}
		y := axis{ScaleLabel: scaleLabel{Display: spec.YLabel != "", LabelString: spec.YLabel}}
		if spec.Kind == KindHBar {
			x, y = y, x
		}
		if spec.Kind == KindHeatmap {
			x.Stacked, y.Stacked = true, true
		}
		cfg.Options.Scales = &scales{XAxes: []axis{x}, YAxes: []axis{y}}
	}
	return cfg
}

// chartJSType maps a kind to a Chart.js 2 type. Heatmaps are drawn as
// stacked bars, one stack segment per column.
func chartJSType(k Kind) string {
	switch k {
	case KindHBar:
		return "horizontalBar"
	case KindScatter:
		return "scatter"
	case KindPie:
		return "pie"
	case KindLine:
		return "line"
	default:
		return "bar"
	}
}

// samplePoints keeps every k-th point so that at most limit remain. The
// selection is deterministic, so the same data gives the same URL.
func samplePoints(points []analytics.Point, limit int) []analytics.Point {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	step := (len(points) + limit - 1) / limit
	out := make([]analytics.Point, 0, limit)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	return out
}
