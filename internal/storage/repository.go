package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tradedash/internal/core"
	"tradedash/internal/dataset"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when nothing has been imported yet.
var ErrNoSnapshot = errors.New("no imported snapshot")

// ImportRecord describes one completed snapshot replacement.
type ImportRecord struct {
	ID         string
	Source     string
	Rows       int
	ImportedAt time.Time
}

// SQLiteRepository stores the imported dataset snapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
	now     func() time.Time
}

var _ dataset.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Name implements dataset.Source.
func (r *SQLiteRepository) Name() string {
	return "sqlite:" + r.path
}

// ReplaceTransactions swaps the stored snapshot for t and records the import.
// Readers never observe a partially written snapshot.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, source string, t *core.Table) (ImportRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRecord{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteTransactions(ctx); err != nil {
		return ImportRecord{}, fmt.Errorf("clear snapshot: %w", err)
	}

	var insertErr error
	t.Each(func(i int, row core.Transaction) {
		if insertErr != nil {
			return
		}
		insertErr = q.InsertTransaction(ctx, InsertTransactionParams{
			Position:       int64(i),
			Category:       row.Category,
			ShippingMethod: row.ShippingMethod,
			Direction:      string(row.Direction),
			Customer:       row.Customer,
			Value:          row.Value,
			Quantity:       row.Quantity,
			Weight:         row.Weight,
			Missing:        int64(row.Missing),
		})
	})
	if insertErr != nil {
		return ImportRecord{}, fmt.Errorf("insert transaction: %w", insertErr)
	}

	rec := ImportRecord{
		ID:         uuid.NewString(),
		Source:     source,
		Rows:       t.Len(),
		ImportedAt: r.now().UTC(),
	}
	if err := q.CreateImport(ctx, CreateImportParams{
		ID:         rec.ID,
		Source:     rec.Source,
		RowCount:   int64(rec.Rows),
		ImportedAt: rec.ImportedAt,
	}); err != nil {
		return ImportRecord{}, fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportRecord{}, fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot replaced",
		"import_id", rec.ID,
		"source", rec.Source,
		"rows", rec.Rows)

	return rec, nil
}

// LatestImport returns the most recent import record.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (ImportRecord, error) {
	imp, err := r.queries.LatestImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRecord{}, ErrNoSnapshot
	}
	if err != nil {
		return ImportRecord{}, fmt.Errorf("get latest import: %w", err)
	}
	return ImportRecord{
		ID:         imp.ID,
		Source:     imp.Source,
		Rows:       int(imp.RowCount),
		ImportedAt: imp.ImportedAt,
	}, nil
}

// Load implements dataset.Source. Failures are reported as *core.LoadError.
func (r *SQLiteRepository) Load(ctx context.Context) (*core.Table, error) {
	if _, err := r.LatestImport(ctx); err != nil {
		return nil, core.NewLoadError(r.Name(), err)
	}

	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, core.NewLoadError(r.Name(), fmt.Errorf("list transactions: %w", err))
	}

	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = core.Transaction{
			Category:       row.Category,
			ShippingMethod: row.ShippingMethod,
			Direction:      core.ParseDirection(row.Direction),
			Customer:       row.Customer,
			Value:          row.Value,
			Quantity:       row.Quantity,
			Weight:         row.Weight,
			Missing:        core.MissingSet(row.Missing),
		}
	}
	return core.NewTable(out, nil), nil
}
