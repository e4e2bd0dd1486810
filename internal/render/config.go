// Package render turns computed dashboard sections into chart payloads:
// JSON configs for browser charting libraries and PNG images via go-chart.
package render

import (
	"errors"
	"fmt"

	"tradedash/internal/aggregate"
	"tradedash/internal/dashboard"
)

var (
	// ErrNoImage is returned by PNG for chart kinds without a server-side renderer.
	ErrNoImage = errors.New("chart kind has no image renderer")

	// ErrEmptyChart is returned by PNG when the section has nothing to draw.
	ErrEmptyChart = errors.New("chart has no data")
)

// ChartConfig is a render-ready description of one section.
type ChartConfig struct {
	ChartType  string               `json:"chartType"`
	Name       string               `json:"name"`
	Title      string               `json:"title"`
	XAxis      string               `json:"xAxis,omitempty"`
	YAxis      string               `json:"yAxis,omitempty"`
	Series     []ChartSeries        `json:"series"`
	Matrix     *aggregate.Matrix    `json:"matrix,omitempty"`
	Boxes      []aggregate.BoxStats `json:"boxes,omitempty"`
	Colors     []string             `json:"colors,omitempty"`
	ShowLegend bool                 `json:"showLegend"`
	Empty      bool                 `json:"empty"`
}

// ChartSeries is one named data series.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint is a single data point. X and Size are used by bubble charts,
// Parent by hierarchical charts and Percent by pies.
type ChartPoint struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	X       float64 `json:"x,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Parent  string  `json:"parent,omitempty"`
}

// Palette used for every chart, in series order.
var Palette = []string{
	"#87ceeb", "#90ee90", "#f08080", "#add8e6", "#ffb347",
	"#b39eb5", "#77dd77", "#fdfd96", "#cfcfc4", "#ff6961",
}

// directionColors follow the stacked customer chart: imports then exports.
var directionColors = map[string]string{
	"Export": "#f08080",
	"Import": "#add8e6",
}

// Config builds the JSON chart description of sec. A failed section returns
// its error; an empty one returns a config with Empty set and no points.
func Config(sec dashboard.Section) (*ChartConfig, error) {
	if sec.Err != nil {
		return nil, sec.Err
	}

	cfg := &ChartConfig{
		ChartType: string(sec.Kind),
		Name:      sec.Name,
		Title:     sec.Title,
		Series:    []ChartSeries{},
		Empty:     sec.Empty,
	}

	switch data := sec.Data.(type) {
	case []aggregate.CategoryValue:
		cfg.XAxis, cfg.YAxis = "Category", "Total Value (USD)"
		if sec.Kind == dashboard.KindTreemap {
			cfg.XAxis, cfg.YAxis = "", ""
		}
		cfg.Series = append(cfg.Series, ChartSeries{Name: "Value", Data: categoryPoints(data), Color: Palette[0]})
	case []aggregate.Share:
		cfg.ShowLegend = true
		points := make([]ChartPoint, len(data))
		for i, s := range data {
			points[i] = ChartPoint{Label: s.Label, Value: float64(s.Count), Percent: s.Percent}
		}
		cfg.Series = append(cfg.Series, ChartSeries{Name: "Transactions", Data: points})
		cfg.Colors = paletteFor(len(points))
	case aggregate.CustomerTotals:
		cfg.XAxis, cfg.YAxis = "Customer", "Transaction Value (USD)"
		cfg.ShowLegend = true
		for i, dir := range data.Directions {
			series := ChartSeries{Name: dir, Data: make([]ChartPoint, len(data.Rows)), Color: directionColor(dir, i)}
			for j, row := range data.Rows {
				series.Data[j] = ChartPoint{Label: row.Customer, Value: row.Values[i]}
			}
			cfg.Series = append(cfg.Series, series)
		}
	case aggregate.Matrix:
		m := data
		cfg.Matrix = &m
	case []aggregate.BoxStats:
		cfg.XAxis, cfg.YAxis = "Shipping Method", "Transaction Value (USD)"
		cfg.Boxes = data
	case []aggregate.CategoryBubble:
		cfg.XAxis, cfg.YAxis = "Total Value (USD)", "Transaction Count"
		points := make([]ChartPoint, len(data))
		for i, b := range data {
			points[i] = ChartPoint{Label: b.Category, X: b.TotalValue, Value: float64(b.Count), Size: float64(b.Count)}
		}
		cfg.Series = append(cfg.Series, ChartSeries{Name: "Categories", Data: points})
		cfg.Colors = paletteFor(len(points))
	case []aggregate.CategoryDirectionValue:
		cfg.Series = append(cfg.Series, ChartSeries{Name: "Value", Data: sunburstPoints(data)})
	case nil:
	default:
		return nil, fmt.Errorf("render %s: unexpected data %T", sec.Name, sec.Data)
	}
	return cfg, nil
}

func categoryPoints(values []aggregate.CategoryValue) []ChartPoint {
	points := make([]ChartPoint, len(values))
	for i, v := range values {
		points[i] = ChartPoint{Label: v.Category, Value: v.Value}
	}
	return points
}

// sunburstPoints emits one root per category followed by its directions.
func sunburstPoints(values []aggregate.CategoryDirectionValue) []ChartPoint {
	var points []ChartPoint
	roots := make(map[string]int)
	for _, v := range values {
		i, ok := roots[v.Category]
		if !ok {
			i = len(points)
			roots[v.Category] = i
			points = append(points, ChartPoint{Label: v.Category})
		}
		points[i].Value += v.Value
	}
	for _, v := range values {
		points = append(points, ChartPoint{Label: v.Direction, Value: v.Value, Parent: v.Category})
	}
	return points
}

func paletteFor(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Palette[i%len(Palette)]
	}
	return out
}

func directionColor(dir string, i int) string {
	if c, ok := directionColors[dir]; ok {
		return c
	}
	return Palette[i%len(Palette)]
}
