package sheets

import (
	"context"
	"errors"
	"fmt"

	"tradedash/internal/core"
	"tradedash/internal/dataset"
)

// RangeReader reads a block of cell values in A1 notation.
// The first returned row is expected to be the header.
type RangeReader interface {
	ReadRange(ctx context.Context, rng string) ([][]string, error)
}

// Source loads the dataset from a spreadsheet range.
type Source struct {
	Reader RangeReader
	Range  string
	Label  string
	Strict bool
}

var _ dataset.Source = (*Source)(nil)

// Name implements dataset.Source.
func (s *Source) Name() string {
	if s.Label != "" {
		return s.Label + "!" + s.Range
	}
	return "sheets:" + s.Range
}

// Load implements dataset.Source.
func (s *Source) Load(ctx context.Context) (*core.Table, error) {
	if s.Reader == nil {
		return nil, core.NewLoadError(s.Name(), errors.New("sheets reader not initialized"))
	}

	values, err := s.Reader.ReadRange(ctx, s.Range)
	if err != nil {
		return nil, core.NewLoadError(s.Name(), fmt.Errorf("read range: %w", err))
	}
	if len(values) == 0 {
		return nil, core.NewLoadError(s.Name(), core.ErrEmptyDataset)
	}

	return dataset.FromRecords(values[0], values[1:], dataset.ParseOptions{
		Source: s.Name(),
		Strict: s.Strict,
	})
}
