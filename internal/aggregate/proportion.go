package aggregate

import (
	"fmt"
	"sort"

	"tradedash/internal/core"
)

// Share is the row count of one distinct value and its percentage of all rows.
type Share struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Proportions counts rows per distinct value of a categorical column.
// Results are ordered by count, largest first; ties keep first-seen order.
func Proportions(view *core.Table, column string) ([]Share, error) {
	switch column {
	case core.ColShippingMethod, core.ColDirection, core.ColCategory, core.ColCustomer:
	default:
		return nil, fmt.Errorf("proportions: %q is not a categorical column", column)
	}

	index := make(map[string]int)
	var shares []Share
	view.Each(func(_ int, tx core.Transaction) {
		label := tx.Dimension(column)
		i, ok := index[label]
		if !ok {
			i = len(shares)
			index[label] = i
			shares = append(shares, Share{Label: label})
		}
		shares[i].Count++
	})

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })

	total := view.Len()
	for i := range shares {
		shares[i].Percent = percent(shares[i].Count, total)
	}
	return shares, nil
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
