package aggregate

import (
	"encoding/json"
	"math"

	"tradedash/internal/core"
)

// Matrix is a square correlation matrix over Columns.
// Undefined coefficients are NaN and encode as JSON null.
type Matrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"-"`
}

// At returns the coefficient for a pair of column names, NaN if unknown.
func (m Matrix) At(a, b string) float64 {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m Matrix) index(col string) int {
	for i, c := range m.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// MarshalJSON writes NaN cells as null.
func (m Matrix) MarshalJSON() ([]byte, error) {
	cells := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		cells[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			cells[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, cells})
}

// Correlation computes the pairwise Pearson matrix of Quantity, Value and
// Weight. Each pair uses only rows where both cells are present. A
// coefficient is NaN when fewer than two such rows exist or either column
// has zero variance over them.
func Correlation(view *core.Table) (Matrix, error) {
	cols := core.NumericColumns()
	if err := view.CheckNumeric(cols...); err != nil {
		return Matrix{}, err
	}

	m := Matrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			x, y := completePairs(view, cols[i], cols[j])
			r := pearson(x, y)
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func completePairs(view *core.Table, a, b string) (x, y []float64) {
	x = make([]float64, 0, view.Len())
	y = make([]float64, 0, view.Len())
	view.Each(func(_ int, tx core.Transaction) {
		if !tx.HasMeasure(a) || !tx.HasMeasure(b) {
			return
		}
		x = append(x, tx.Measure(a))
		y = append(y, tx.Measure(b))
	})
	return x, y
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}

	var mx, my float64
	for i := 0; i < n; i++ {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxx, syy, sxy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}

	r := sxy / math.Sqrt(sxx*syy)
	return math.Max(-1, math.Min(1, r))
}
