package dashboard

import (
	"fmt"
	"strings"

	"tradedash/internal/aggregate"
	"tradedash/internal/core"
)

// Kind is the chart family a section is drawn as.
type Kind string

const (
	KindBar        Kind = "bar"
	KindStackedBar Kind = "stacked_bar"
	KindPie        Kind = "pie"
	KindHeatmap    Kind = "heatmap"
	KindBox        Kind = "box"
	KindTreemap    Kind = "treemap"
	KindBubble     Kind = "bubble"
	KindSunburst   Kind = "sunburst"
)

// Section names, in display order.
const (
	SectionImportBar          = "import_bar"
	SectionExportBar          = "export_bar"
	SectionShippingPie        = "shipping_pie"
	SectionDirectionPie       = "direction_pie"
	SectionCustomerStackedBar = "customer_stacked_bar"
	SectionCorrelationHeatmap = "correlation_heatmap"
	SectionValueBox           = "value_box"
	SectionCategoryTreemap    = "category_treemap"
	SectionCategoryBubble     = "category_bubble"
	SectionCategorySunburst   = "category_sunburst"
)

type computeFunc func(view *core.Table, topN int) (any, error)

type sectionDef struct {
	name    string
	title   string // may contain %d for the top-N limit
	kind    Kind
	compute computeFunc
}

func (d sectionDef) info(topN int) SectionInfo {
	title := d.title
	if strings.Contains(title, "%d") {
		title = fmt.Sprintf(title, topN)
	}
	return SectionInfo{Name: d.name, Title: title, Kind: d.kind}
}

var sectionDefs = []sectionDef{
	{
		name:  SectionImportBar,
		title: "Top %d Categories by Import Value",
		kind:  KindBar,
		compute: func(view *core.Table, topN int) (any, error) {
			return aggregate.TopCategoriesByDirection(view, core.Import, topN)
		},
	},
	{
		name:  SectionExportBar,
		title: "Top %d Categories by Export Value",
		kind:  KindBar,
		compute: func(view *core.Table, topN int) (any, error) {
			return aggregate.TopCategoriesByDirection(view, core.Export, topN)
		},
	},
	{
		name:  SectionShippingPie,
		title: "Proportion of Transactions by Shipping Method",
		kind:  KindPie,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.Proportions(view, core.ColShippingMethod)
		},
	},
	{
		name:  SectionDirectionPie,
		title: "Proportion of Transactions by Import/Export Type",
		kind:  KindPie,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.Proportions(view, core.ColDirection)
		},
	},
	{
		name:  SectionCustomerStackedBar,
		title: "Customer-wise Highest Import/Export Transactions",
		kind:  KindStackedBar,
		compute: func(view *core.Table, topN int) (any, error) {
			return aggregate.CustomerRanking(view, topN)
		},
	},
	{
		name:  SectionCorrelationHeatmap,
		title: "Correlation Heatmap of Numerical Features",
		kind:  KindHeatmap,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.Correlation(view)
		},
	},
	{
		name:  SectionValueBox,
		title: "Box Plot of Transaction Value by Shipping Method",
		kind:  KindBox,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.ValueDistribution(view)
		},
	},
	{
		name:  SectionCategoryTreemap,
		title: "Treemap of Total Import/Export Values by Category",
		kind:  KindTreemap,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.CategoryTotals(view)
		},
	},
	{
		name:  SectionCategoryBubble,
		title: "Bubble Chart of Transaction Count vs Total Value by Category",
		kind:  KindBubble,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.CategoryBubbles(view)
		},
	},
	{
		name:  SectionCategorySunburst,
		title: "Sunburst Chart of Import/Export Values by Category",
		kind:  KindSunburst,
		compute: func(view *core.Table, _ int) (any, error) {
			return aggregate.CategoryDirectionTotals(view)
		},
	},
}

// SectionInfo describes a section without computing it.
type SectionInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
}

// Sections lists every section in display order, titled for topN.
func Sections(topN int) []SectionInfo {
	out := make([]SectionInfo, len(sectionDefs))
	for i, d := range sectionDefs {
		out[i] = d.info(topN)
	}
	return out
}

// Lookup returns the section called name.
func Lookup(name string, topN int) (SectionInfo, bool) {
	if d, ok := lookupDef(name); ok {
		return d.info(topN), true
	}
	return SectionInfo{}, false
}

func lookupDef(name string) (sectionDef, bool) {
	for _, d := range sectionDefs {
		if d.name == name {
			return d, true
		}
	}
	return sectionDef{}, false
}
