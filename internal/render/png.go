package render

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tradedash/internal/aggregate"
	"tradedash/internal/dashboard"
)

const (
	imageWidth  = 1024
	imageHeight = 512
)

// HasImage reports whether kind can be rendered by PNG.
func HasImage(kind dashboard.Kind) bool {
	switch kind {
	case dashboard.KindBar, dashboard.KindStackedBar, dashboard.KindPie, dashboard.KindBubble:
		return true
	}
	return false
}

// PNG draws sec to w. Kinds without a renderer return ErrNoImage and
// sections with nothing to draw return ErrEmptyChart.
func PNG(sec dashboard.Section, w io.Writer) error {
	if !HasImage(sec.Kind) {
		return fmt.Errorf("%w: %s", ErrNoImage, sec.Kind)
	}
	if sec.Err != nil {
		return sec.Err
	}
	if sec.Empty {
		return ErrEmptyChart
	}

	switch data := sec.Data.(type) {
	case []aggregate.CategoryValue:
		return barPNG(sec.Title, data, w)
	case aggregate.CustomerTotals:
		return stackedBarPNG(sec.Title, data, w)
	case []aggregate.Share:
		return piePNG(sec.Title, data, w)
	case []aggregate.CategoryBubble:
		return bubblePNG(sec.Title, data, w)
	case nil:
		return ErrEmptyChart
	default:
		return fmt.Errorf("render %s: unexpected data %T", sec.Name, sec.Data)
	}
}

func barPNG(title string, values []aggregate.CategoryValue, w io.Writer) error {
	if len(values) == 0 {
		return ErrEmptyChart
	}

	bars := make([]chart.Value, len(values))
	lo, hi := 0.0, 0.0
	for i, v := range values {
		bars[i] = chart.Value{
			Label: v.Category,
			Value: v.Value,
			Style: chart.Style{FillColor: color(0), StrokeColor: drawing.ColorBlack, StrokeWidth: 1},
		}
		lo, hi = math.Min(lo, v.Value), math.Max(hi, v.Value)
	}
	if hi == lo {
		hi = lo + 1
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      imageWidth,
		Height:     imageHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Name: "Total Value (USD)", Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

func stackedBarPNG(title string, totals aggregate.CustomerTotals, w io.Writer) error {
	var bars []chart.StackedBar
	for _, row := range totals.Rows {
		if row.Total <= 0 {
			continue
		}
		bar := chart.StackedBar{Name: row.Customer, Width: 60}
		for i, dir := range totals.Directions {
			if row.Values[i] <= 0 {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Label: dir,
				Value: row.Values[i],
				Style: chart.Style{FillColor: drawing.ColorFromHex(directionColor(dir, i)), StrokeColor: drawing.ColorBlack, StrokeWidth: 1},
			})
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return ErrEmptyChart
	}

	sbc := chart.StackedBarChart{
		Title:      title,
		Width:      imageWidth,
		Height:     imageHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarSpacing: 30,
		Bars:       bars,
	}
	return sbc.Render(chart.PNG, w)
}

func piePNG(title string, shares []aggregate.Share, w io.Writer) error {
	var values []chart.Value
	for i, s := range shares {
		if s.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Percent),
			Value: float64(s.Count),
			Style: chart.Style{FillColor: color(i)},
		})
	}
	if len(values) == 0 {
		return ErrEmptyChart
	}

	pc := chart.PieChart{
		Title:  title,
		Width:  imageHeight,
		Height: imageHeight,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}

// bubblePNG plots total value against transaction count with dot size
// scaled by transaction count.
func bubblePNG(title string, bubbles []aggregate.CategoryBubble, w io.Writer) error {
	if len(bubbles) == 0 {
		return ErrEmptyChart
	}

	xs := make([]float64, len(bubbles))
	ys := make([]float64, len(bubbles))
	maxCount := 0.0
	for i, b := range bubbles {
		xs[i] = b.TotalValue
		ys[i] = float64(b.Count)
		maxCount = math.Max(maxCount, float64(b.Count))
	}

	series := chart.ContinuousSeries{
		Name:    "Categories",
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidthProvider: func(_, _ chart.Range, i int, _, y float64) float64 {
				if maxCount == 0 {
					return 5
				}
				return 5 + 25*y/maxCount
			},
			DotColorProvider: func(_, _ chart.Range, i int, _, _ float64) drawing.Color {
				return color(i).WithAlpha(180)
			},
		},
	}

	ch := chart.Chart{
		Title:      title,
		Width:      imageWidth,
		Height:     imageHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Total Value (USD)", Range: paddedRange(xs)},
		YAxis:      chart.YAxis{Name: "Transaction Count", Range: paddedRange(ys)},
		Series:     []chart.Series{series},
	}
	return ch.Render(chart.PNG, w)
}

// paddedRange widens the data range by 10% on each side so single points
// and identical values still produce a drawable axis.
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func barWidth(n int) int {
	switch {
	case n <= 3:
		return 120
	case n <= 6:
		return 80
	default:
		return 50
	}
}

func color(i int) drawing.Color {
	return drawing.ColorFromHex(Palette[i%len(Palette)])
}
