package core

import "strings"

// Source column names as they appear in the dataset header.
const (
	ColCategory       = "Category"
	ColShippingMethod = "Shipping_Method"
	ColDirection      = "Import_Export"
	ColCustomer       = "Customer"
	ColValue          = "Value"
	ColQuantity       = "Quantity"
	ColWeight         = "Weight"
)

const (
	Import Direction = "Import"
	Export Direction = "Export"
)

type (
	// Direction tells whether a transaction is an import or an export.
	// Values outside the known set are kept verbatim.
	Direction string

	// Transaction is one row of the trade dataset.
	Transaction struct {
		Category       string
		ShippingMethod string
		Direction      Direction
		Customer       string
		Value          float64
		Quantity       float64
		Weight         float64

		// Missing flags numeric cells that were empty in the source. They
		// read as 0 here and in sums but are left out of statistics.
		Missing MissingSet
	}

	// MissingSet is a bit set over the numeric columns.
	MissingSet uint8
)

// RequiredColumns lists every column a dataset must provide, in canonical order.
func RequiredColumns() []string {
	return []string{
		ColCategory,
		ColShippingMethod,
		ColDirection,
		ColCustomer,
		ColValue,
		ColQuantity,
		ColWeight,
	}
}

// NumericColumns lists the columns parsed as float64.
func NumericColumns() []string {
	return []string{ColQuantity, ColValue, ColWeight}
}

// IsNumericColumn reports whether col is one of the numeric columns.
func IsNumericColumn(col string) bool {
	switch col {
	case ColValue, ColQuantity, ColWeight:
		return true
	}
	return false
}

// IsKnown reports whether d is Import or Export.
func (d Direction) IsKnown() bool {
	return d == Import || d == Export
}

func (d Direction) String() string {
	return string(d)
}

// ParseDirection trims the raw cell; it does not reject unknown values.
func ParseDirection(raw string) Direction {
	return Direction(strings.TrimSpace(raw))
}

// Dimension returns the categorical value of t for the given column name.
func (t Transaction) Dimension(col string) string {
	switch col {
	case ColCategory:
		return t.Category
	case ColShippingMethod:
		return t.ShippingMethod
	case ColDirection:
		return string(t.Direction)
	case ColCustomer:
		return t.Customer
	}
	return ""
}

// Measure returns the numeric value of t for the given column name.
func (t Transaction) Measure(col string) float64 {
	switch col {
	case ColValue:
		return t.Value
	case ColQuantity:
		return t.Quantity
	case ColWeight:
		return t.Weight
	}
	return 0
}

func missingBit(col string) MissingSet {
	switch col {
	case ColValue:
		return 1
	case ColQuantity:
		return 2
	case ColWeight:
		return 4
	}
	return 0
}

// With returns m with col marked missing. Non-numeric columns are ignored.
func (m MissingSet) With(col string) MissingSet {
	return m | missingBit(col)
}

// Has reports whether col is marked missing.
func (m MissingSet) Has(col string) bool {
	bit := missingBit(col)
	return bit != 0 && m&bit != 0
}

// HasMeasure reports whether the numeric column col holds a real value.
func (t Transaction) HasMeasure(col string) bool {
	return IsNumericColumn(col) && !t.Missing.Has(col)
}
