// Package dataset loads trade transaction tables from CSV-shaped sources.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tradedash/internal/core"
)

// ParseOptions tunes CSV decoding.
type ParseOptions struct {
	// Source names the origin in error messages (path or URI).
	Source string
	// Strict turns non-numeric cells in numeric columns into a LoadError
	// instead of a per-column DataTypeError on the table.
	Strict bool
}

// Parse decodes a CSV stream with a header row into a table.
// Columns are matched by exact header name; extra columns are ignored.
func Parse(r io.Reader, opts ParseOptions) (*core.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewLoadError(opts.Source, core.ErrEmptyDataset)
		}
		return nil, core.NewLoadError(opts.Source, fmt.Errorf("read header: %w", err))
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, core.NewLoadError(opts.Source, err)
	}

	b := newBuilder(index, opts)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.NewLoadError(opts.Source, fmt.Errorf("read row %d: %w", b.rowCount()+1, err))
		}
		if err := b.add(record); err != nil {
			return nil, err
		}
	}

	return b.table(), nil
}

// FromRecords builds a table from an already split header and rows, as
// returned by spreadsheet APIs. Short rows are padded with empty cells.
func FromRecords(header []string, rows [][]string, opts ParseOptions) (*core.Table, error) {
	if len(header) == 0 {
		return nil, core.NewLoadError(opts.Source, core.ErrEmptyDataset)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, core.NewLoadError(opts.Source, err)
	}

	b := newBuilder(index, opts)
	for _, row := range rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		if err := b.add(row); err != nil {
			return nil, err
		}
	}
	return b.table(), nil
}

// columnIndex maps every required column to its position in header.
func columnIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h, i == 0)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	index := make(map[string]int, len(core.RequiredColumns()))
	var missing []string
	for _, col := range core.RequiredColumns() {
		pos, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return index, nil
}

func normalizeHeader(h string, first bool) string {
	if first {
		h = strings.TrimPrefix(h, "\ufeff")
	}
	return strings.TrimSpace(h)
}

type builder struct {
	index  map[string]int
	opts   ParseOptions
	rows   []core.Transaction
	issues map[string]*core.DataTypeError
}

func newBuilder(index map[string]int, opts ParseOptions) *builder {
	return &builder{index: index, opts: opts}
}

func (b *builder) rowCount() int {
	return len(b.rows)
}

func (b *builder) add(record []string) error {
	rowNum := len(b.rows) + 1
	cell := func(col string) string {
		pos := b.index[col]
		if pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	tx := core.Transaction{
		Category:       cell(core.ColCategory),
		ShippingMethod: cell(core.ColShippingMethod),
		Direction:      core.ParseDirection(cell(core.ColDirection)),
		Customer:       cell(core.ColCustomer),
	}

	for _, col := range core.NumericColumns() {
		raw := cell(col)
		if raw == "" {
			tx.Missing = tx.Missing.With(col)
			continue
		}
		v, ok := parseNumber(raw)
		if !ok {
			issue := &core.DataTypeError{Column: col, Row: rowNum, Value: raw}
			if b.opts.Strict {
				return core.NewLoadError(b.opts.Source, issue)
			}
			if b.issues == nil {
				b.issues = make(map[string]*core.DataTypeError)
			}
			if _, seen := b.issues[col]; !seen {
				b.issues[col] = issue
			}
		}
		switch col {
		case core.ColValue:
			tx.Value = v
		case core.ColQuantity:
			tx.Quantity = v
		case core.ColWeight:
			tx.Weight = v
		}
	}

	b.rows = append(b.rows, tx)
	return nil
}

func (b *builder) table() *core.Table {
	return core.NewTable(b.rows, b.issues)
}

// parseNumber accepts plain decimal notation.
func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
