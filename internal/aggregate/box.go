package aggregate

import (
	"math"
	"sort"

	"tradedash/internal/core"
)

// BoxStats summarises the Value distribution of one shipping method.
type BoxStats struct {
	Group        string    `json:"group"`
	Count        int       `json:"count"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers,omitempty"`
}

// whiskerSpan is the IQR multiple beyond which points are outliers.
const whiskerSpan = 1.5

// ValueDistribution computes box plot statistics of Value per shipping
// method, groups in first-seen order. Missing Value cells are skipped, and
// a method with no present value has no box.
func ValueDistribution(view *core.Table) ([]BoxStats, error) {
	if err := view.CheckNumeric(core.ColValue); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var names []string
	var values [][]float64
	view.Each(func(_ int, tx core.Transaction) {
		if !tx.HasMeasure(core.ColValue) {
			return
		}
		i, ok := index[tx.ShippingMethod]
		if !ok {
			i = len(names)
			index[tx.ShippingMethod] = i
			names = append(names, tx.ShippingMethod)
			values = append(values, nil)
		}
		values[i] = append(values[i], tx.Value)
	})

	out := make([]BoxStats, len(names))
	for i, name := range names {
		out[i] = boxStats(name, values[i])
	}
	return out, nil
}

func boxStats(name string, vals []float64) BoxStats {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	b := BoxStats{
		Group:  name,
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
	}

	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-whiskerSpan*iqr, b.Q3+whiskerSpan*iqr
	b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b
}

// Quantile interpolates linearly between closest ranks of sorted data.
// It returns NaN for empty input.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
