package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult marks a filtered view without rows. Aggregations
	// return empty summaries for it; callers decide how to present that.
	ErrEmptyResult = errors.New("empty result")

	ErrMissingColumns = errors.New("missing required columns")
	ErrEmptyDataset   = errors.New("dataset has no header row")
)

// LoadError reports a dataset that could not be read or decoded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return "load dataset: " + e.Err.Error()
	}
	return fmt.Sprintf("load dataset %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err as a LoadError for source.
func NewLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Err: err}
}

// DataTypeError reports a non-numeric cell in a numeric column.
// Row is 1-based and counts data rows only (the header is not row 1).
type DataTypeError struct {
	Column string
	Row    int
	Value  string
}

func (e *DataTypeError) Error() string {
	return fmt.Sprintf("column %s: row %d: non-numeric value %q", e.Column, e.Row, e.Value)
}

// IsLoadError reports whether err wraps a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsDataTypeError reports whether err wraps a DataTypeError.
func IsDataTypeError(err error) bool {
	var de *DataTypeError
	return errors.As(err, &de)
}
