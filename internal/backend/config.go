package backend

import (
	"fmt"

	"tradedash/internal/config"
)

// Config holds configuration for source creation
type Config struct {
	Type Type

	// CSV specific; DatasetPath may be a gs:// URI
	DatasetPath string
	Strict      bool

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetRange    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		DatasetPath:         appConfig.DatasetPath,
		Strict:              appConfig.DatasetStrict,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:    appConfig.GoogleSheetRange,
	}, nil
}

// Validate checks the fields the selected backend needs.
func (c Config) Validate() error {
	switch c.Type {
	case CSVBackend:
		if c.DatasetPath == "" {
			return fmt.Errorf("dataset path is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetRange == "" {
			return fmt.Errorf("Google Sheet range is required for sheets backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{CSVBackend, SQLiteBackend, SheetsBackend}
}
