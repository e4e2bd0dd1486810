package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"tradedash/internal/aggregate"
	"tradedash/internal/core"
	"tradedash/internal/dashboard"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleView() *core.Table {
	return core.NewTable([]core.Transaction{
		{Category: "A", ShippingMethod: "Air", Direction: core.Import, Customer: "c1", Value: 100, Quantity: 1, Weight: 3},
		{Category: "A", ShippingMethod: "Sea", Direction: core.Export, Customer: "c1", Value: 50, Quantity: 2, Weight: 2},
		{Category: "B", ShippingMethod: "Air", Direction: core.Import, Customer: "c2", Value: 30, Quantity: 4, Weight: 1},
	}, nil)
}

func section(t *testing.T, name string, kind dashboard.Kind, compute func(*core.Table) (any, error)) dashboard.Section {
	t.Helper()
	data, err := compute(sampleView())
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return dashboard.Section{Name: name, Title: name, Kind: kind, Data: data}
}

func TestConfigBar(t *testing.T) {
	sec := section(t, dashboard.SectionImportBar, dashboard.KindBar, func(v *core.Table) (any, error) {
		return aggregate.TopCategoriesByDirection(v, core.Import, 10)
	})

	cfg, err := Config(sec)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChartType != "bar" || len(cfg.Series) != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}
	got := cfg.Series[0].Data
	if len(got) != 2 || got[0].Label != "A" || got[0].Value != 100 || got[1].Label != "B" {
		t.Fatalf("points = %+v", got)
	}
}

func TestConfigStackedBar(t *testing.T) {
	sec := section(t, dashboard.SectionCustomerStackedBar, dashboard.KindStackedBar, func(v *core.Table) (any, error) {
		return aggregate.CustomerRanking(v, 10)
	})

	cfg, err := Config(sec)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Series) != 2 || cfg.Series[0].Name != "Export" || cfg.Series[1].Name != "Import" {
		t.Fatalf("series = %+v", cfg.Series)
	}
	if cfg.Series[1].Color != "#add8e6" {
		t.Fatalf("import color = %s", cfg.Series[1].Color)
	}
	// c1 leads with 150 in total.
	if cfg.Series[1].Data[0].Label != "c1" || cfg.Series[1].Data[0].Value != 100 {
		t.Fatalf("import points = %+v", cfg.Series[1].Data)
	}
}

func TestConfigPieAndBubble(t *testing.T) {
	pie := section(t, dashboard.SectionShippingPie, dashboard.KindPie, func(v *core.Table) (any, error) {
		return aggregate.Proportions(v, core.ColShippingMethod)
	})
	cfg, err := Config(pie)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, p := range cfg.Series[0].Data {
		sum += p.Percent
	}
	if math.Abs(sum-100) > 1e-9 || len(cfg.Colors) != 2 || !cfg.ShowLegend {
		t.Fatalf("pie cfg = %+v", cfg)
	}

	bubble := section(t, dashboard.SectionCategoryBubble, dashboard.KindBubble, func(v *core.Table) (any, error) {
		return aggregate.CategoryBubbles(v)
	})
	cfg, err = Config(bubble)
	if err != nil {
		t.Fatal(err)
	}
	a := cfg.Series[0].Data[0]
	if a.Label != "A" || a.X != 150 || a.Value != 2 || a.Size != 2 {
		t.Fatalf("bubble point = %+v, want x=total value, y and size=count", a)
	}
	if cfg.XAxis != "Total Value (USD)" || cfg.YAxis != "Transaction Count" {
		t.Fatalf("bubble axes = %q / %q", cfg.XAxis, cfg.YAxis)
	}
}

func TestConfigHeatmapEncodesNaNAsNull(t *testing.T) {
	view := core.NewTable(sampleView().Rows()[:1], nil)
	m, err := aggregate.Correlation(view)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Config(dashboard.Section{Name: dashboard.SectionCorrelationHeatmap, Kind: dashboard.KindHeatmap, Data: m})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"values":[[null,null,null]`) {
		t.Fatalf("unexpected matrix JSON: %s", raw)
	}
}

func TestConfigSunburst(t *testing.T) {
	sec := section(t, dashboard.SectionCategorySunburst, dashboard.KindSunburst, func(v *core.Table) (any, error) {
		return aggregate.CategoryDirectionTotals(v)
	})
	cfg, err := Config(sec)
	if err != nil {
		t.Fatal(err)
	}

	points := cfg.Series[0].Data
	// Roots A and B, then children A/Export, A/Import, B/Import.
	if len(points) != 5 {
		t.Fatalf("points = %+v", points)
	}
	if points[0] != (ChartPoint{Label: "A", Value: 150}) || points[1] != (ChartPoint{Label: "B", Value: 30}) {
		t.Fatalf("roots = %+v", points[:2])
	}
	for _, p := range points[2:] {
		if p.Parent == "" {
			t.Fatalf("child without parent: %+v", p)
		}
	}
}

func TestConfigFailedAndEmpty(t *testing.T) {
	dtErr := &core.DataTypeError{Column: core.ColValue, Row: 3, Value: "x"}
	if _, err := Config(dashboard.Section{Kind: dashboard.KindBar, Err: dtErr}); !core.IsDataTypeError(err) {
		t.Fatalf("expected DataTypeError, got %v", err)
	}

	cfg, err := Config(dashboard.Section{Kind: dashboard.KindBar, Empty: true, Data: []aggregate.CategoryValue{}})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Empty || len(cfg.Series[0].Data) != 0 {
		t.Fatalf("empty cfg = %+v", cfg)
	}

	if _, err := Config(dashboard.Section{Name: "odd", Kind: dashboard.KindBar, Data: 42}); err == nil {
		t.Fatal("expected error for unexpected data type")
	}
}

func TestPNG(t *testing.T) {
	tests := []struct {
		name    string
		kind    dashboard.Kind
		compute func(*core.Table) (any, error)
	}{
		{"bar", dashboard.KindBar, func(v *core.Table) (any, error) { return aggregate.TopCategoriesByDirection(v, core.Import, 10) }},
		{"stacked", dashboard.KindStackedBar, func(v *core.Table) (any, error) { return aggregate.CustomerRanking(v, 10) }},
		{"pie", dashboard.KindPie, func(v *core.Table) (any, error) { return aggregate.Proportions(v, core.ColDirection) }},
		{"bubble", dashboard.KindBubble, func(v *core.Table) (any, error) { return aggregate.CategoryBubbles(v) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := PNG(section(t, tt.name, tt.kind, tt.compute), &buf); err != nil {
				t.Fatalf("PNG: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
				t.Fatalf("output is not a PNG (%d bytes)", buf.Len())
			}
		})
	}
}

func TestPNGSingleBubble(t *testing.T) {
	sec := dashboard.Section{Kind: dashboard.KindBubble, Data: []aggregate.CategoryBubble{{Category: "A", TotalValue: 10, Count: 1}}}
	var buf bytes.Buffer
	if err := PNG(sec, &buf); err != nil {
		t.Fatalf("PNG: %v", err)
	}
}

func TestPNGErrors(t *testing.T) {
	var buf bytes.Buffer

	if err := PNG(dashboard.Section{Kind: dashboard.KindHeatmap}, &buf); !errors.Is(err, ErrNoImage) {
		t.Fatalf("heatmap: expected ErrNoImage, got %v", err)
	}
	if err := PNG(dashboard.Section{Kind: dashboard.KindBar, Empty: true}, &buf); !errors.Is(err, ErrEmptyChart) {
		t.Fatalf("empty: expected ErrEmptyChart, got %v", err)
	}
	if err := PNG(dashboard.Section{Kind: dashboard.KindBar, Data: []aggregate.CategoryValue{}}, &buf); !errors.Is(err, ErrEmptyChart) {
		t.Fatalf("no bars: expected ErrEmptyChart, got %v", err)
	}
	zero := aggregate.CustomerTotals{Directions: []string{"Import"}, Rows: []aggregate.CustomerRow{{Customer: "c", Values: []float64{0}}}}
	if err := PNG(dashboard.Section{Kind: dashboard.KindStackedBar, Data: zero}, &buf); !errors.Is(err, ErrEmptyChart) {
		t.Fatalf("zero totals: expected ErrEmptyChart, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written on error")
	}
}
