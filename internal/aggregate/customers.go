package aggregate

import (
	"sort"

	"tradedash/internal/core"
)

// CustomerRow is one customer's summed value per direction.
// Values is aligned with CustomerTotals.Directions.
type CustomerRow struct {
	Customer string    `json:"customer"`
	Values   []float64 `json:"values"`
	Total    float64   `json:"total"`
}

// CustomerTotals is the pivoted customer ranking.
type CustomerTotals struct {
	Directions []string      `json:"directions"`
	Rows       []CustomerRow `json:"rows"`
}

// ValueFor returns the row's value for a direction, 0 when absent.
func (t CustomerTotals) ValueFor(row CustomerRow, dir string) float64 {
	for i, d := range t.Directions {
		if d == dir {
			return row.Values[i]
		}
	}
	return 0
}

// CustomerRanking sums Value per (customer, direction), pivots directions
// into columns (missing pairs are 0) and keeps the n customers with the
// largest total. n <= 0 keeps all.
func CustomerRanking(view *core.Table, n int) (CustomerTotals, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return CustomerTotals{}, err
	}

	dirSet := make(map[string]struct{})
	sums := make(map[string]map[string]float64)
	view.Each(func(_ int, tx core.Transaction) {
		dir := string(tx.Direction)
		dirSet[dir] = struct{}{}
		byDir, ok := sums[tx.Customer]
		if !ok {
			byDir = make(map[string]float64)
			sums[tx.Customer] = byDir
		}
		byDir[dir] += tx.Value
	})

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	customers := make([]string, 0, len(sums))
	for c := range sums {
		customers = append(customers, c)
	}
	sort.Strings(customers)

	rows := make([]CustomerRow, len(customers))
	for i, c := range customers {
		row := CustomerRow{Customer: c, Values: make([]float64, len(dirs))}
		for j, d := range dirs {
			row.Values[j] = sums[c][d]
			row.Total += row.Values[j]
		}
		rows[i] = row
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })

	return CustomerTotals{Directions: dirs, Rows: limit(rows, n)}, nil
}
