// Package aggregate holds the per-chart summaries computed from a filtered view.
//
// Every function is pure: it reads the view and returns a new, small result.
// Groups are visited in ascending key order and descending value sorts are
// stable, so ties keep that order.
package aggregate

import (
	"sort"

	"tradedash/internal/core"
)

// DefaultTopN is the number of groups kept by ranking charts.
const DefaultTopN = 10

// CategoryValue is a summed value for one category.
type CategoryValue struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// CategoryBubble carries the two bubble chart measures of a category.
type CategoryBubble struct {
	Category   string  `json:"category"`
	TotalValue float64 `json:"total_value"`
	Count      int     `json:"transaction_count"`
}

// CategoryDirectionValue is a summed value for one (category, direction) pair.
type CategoryDirectionValue struct {
	Category  string  `json:"category"`
	Direction string  `json:"direction"`
	Value     float64 `json:"value"`
}

// TopCategoriesByDirection sums Value per category over rows with the given
// direction and returns the n largest, biggest first. n <= 0 keeps all.
func TopCategoriesByDirection(view *core.Table, dir core.Direction, n int) ([]CategoryValue, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return nil, err
	}

	groups := groupBy(view,
		func(tx core.Transaction) (string, bool) { return tx.Category, tx.Direction == dir },
		func(tx core.Transaction) float64 { return tx.Value },
	)
	sortDesc(groups)
	groups = limit(groups, n)

	out := make([]CategoryValue, len(groups))
	for i, g := range groups {
		out[i] = CategoryValue{Category: g.key, Value: g.sum}
	}
	return out, nil
}

// CategoryTotals sums Value per category.
func CategoryTotals(view *core.Table) ([]CategoryValue, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return nil, err
	}

	groups := groupBy(view, byColumn(core.ColCategory), value)
	out := make([]CategoryValue, len(groups))
	for i, g := range groups {
		out[i] = CategoryValue{Category: g.key, Value: g.sum}
	}
	return out, nil
}

// CategoryBubbles sums Value and counts rows per category.
func CategoryBubbles(view *core.Table) ([]CategoryBubble, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return nil, err
	}

	groups := groupBy(view, byColumn(core.ColCategory), value)
	out := make([]CategoryBubble, len(groups))
	for i, g := range groups {
		out[i] = CategoryBubble{Category: g.key, TotalValue: g.sum, Count: g.count}
	}
	return out, nil
}

// CategoryDirectionTotals sums Value per (category, direction).
func CategoryDirectionTotals(view *core.Table) ([]CategoryDirectionValue, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return nil, err
	}

	type pair struct{ cat, dir string }
	sums := make(map[pair]float64)
	view.Each(func(_ int, tx core.Transaction) {
		sums[pair{tx.Category, string(tx.Direction)}] += tx.Value
	})

	out := make([]CategoryDirectionValue, 0, len(sums))
	for k, v := range sums {
		out = append(out, CategoryDirectionValue{Category: k.cat, Direction: k.dir, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Direction < out[j].Direction
	})
	return out, nil
}

type group struct {
	key   string
	sum   float64
	count int
}

// groupBy sums measure per key over the rows keyOf accepts, ordered by key.
func groupBy(view *core.Table, keyOf func(core.Transaction) (string, bool), measure func(core.Transaction) float64) []group {
	index := make(map[string]int)
	var groups []group
	view.Each(func(_ int, tx core.Transaction) {
		key, ok := keyOf(tx)
		if !ok {
			return
		}
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{key: key})
		}
		groups[i].sum += measure(tx)
		groups[i].count++
	})
	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups
}

func sortDesc(groups []group) {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].sum > groups[j].sum })
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func byColumn(col string) func(core.Transaction) (string, bool) {
	return func(tx core.Transaction) (string, bool) { return tx.Dimension(col), true }
}

func value(tx core.Transaction) float64 {
	return tx.Value
}
