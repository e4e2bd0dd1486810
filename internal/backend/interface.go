package backend

import (
	"context"

	"tradedash/internal/dataset"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// Result is a ready dataset source and its optional cleanup.
type Result struct {
	Source  dataset.Source
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates dataset sources based on configuration.
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Type names a dataset backend.
type Type string

const (
	CSVBackend    Type = "csv"
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case CSVBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
