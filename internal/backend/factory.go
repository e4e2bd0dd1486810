package backend

import (
	"context"
	"fmt"

	"tradedash/internal/dataset"
	applog "tradedash/internal/log"
	"tradedash/internal/sheets"
	gsheet "tradedash/internal/sheets/google"
	"tradedash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger

	// Overridable for tests.
	newGCSReader   func(ctx context.Context) (dataset.ObjectReader, CleanupFunc, error)
	newRangeReader func(ctx context.Context, spreadsheetID string) (sheets.RangeReader, error)
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger:         logger.WithComponent(applog.ComponentBackend),
		newGCSReader:   defaultGCSReader,
		newRangeReader: defaultRangeReader,
	}
}

func defaultGCSReader(ctx context.Context) (dataset.ObjectReader, CleanupFunc, error) {
	r, err := dataset.NewGCSReader(ctx)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func defaultRangeReader(ctx context.Context, spreadsheetID string) (sheets.RangeReader, error) {
	return gsheet.New(ctx, spreadsheetID)
}

// CreateSource implements Factory.
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVSource(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteSource(config)
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVSource(ctx context.Context, config Config) (*Result, error) {
	if !dataset.IsGCSURI(config.DatasetPath) {
		f.logger.Info("Initialized CSV backend", applog.FieldDatasetSource, config.DatasetPath)
		return &Result{Source: dataset.NewSource(config.DatasetPath, config.Strict, nil)}, nil
	}

	if _, _, err := dataset.SplitGCSURI(config.DatasetPath); err != nil {
		return nil, err
	}
	reader, cleanup, err := f.newGCSReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
	}

	f.logger.Info("Initialized GCS backend", applog.FieldDatasetSource, config.DatasetPath)
	return &Result{
		Source:  dataset.NewSource(config.DatasetPath, config.Strict, reader),
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*Result, error) {
	reader, err := f.newRangeReader(ctx, config.GoogleSpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"range", config.GoogleSheetRange)
	return &Result{
		Source: &sheets.Source{
			Reader: reader,
			Range:  config.GoogleSheetRange,
			Label:  config.GoogleSpreadsheetID,
			Strict: config.Strict,
		},
	}, nil
}
