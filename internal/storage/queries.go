package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the snapshot statements.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const deleteTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteTransactions)
	return err
}

const insertTransaction = `
INSERT INTO transactions (position, category, shipping_method, direction, customer, value, quantity, weight, missing)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	Position       int64
	Category       string
	ShippingMethod string
	Direction      string
	Customer       string
	Value          float64
	Quantity       float64
	Weight         float64
	Missing        int64
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.Position,
		arg.Category,
		arg.ShippingMethod,
		arg.Direction,
		arg.Customer,
		arg.Value,
		arg.Quantity,
		arg.Weight,
		arg.Missing,
	)
	return err
}

const listTransactions = `
SELECT category, shipping_method, direction, customer, value, quantity, weight, missing
FROM transactions
ORDER BY position`

type ListTransactionsRow struct {
	Category       string
	ShippingMethod string
	Direction      string
	Customer       string
	Value          float64
	Quantity       float64
	Weight         float64
	Missing        int64
}

func (q *Queries) ListTransactions(ctx context.Context) ([]ListTransactionsRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListTransactionsRow
	for rows.Next() {
		var i ListTransactionsRow
		if err := rows.Scan(
			&i.Category,
			&i.ShippingMethod,
			&i.Direction,
			&i.Customer,
			&i.Value,
			&i.Quantity,
			&i.Weight,
			&i.Missing,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createImport = `INSERT INTO imports (id, source, row_count, imported_at) VALUES (?, ?, ?, ?)`

type CreateImportParams struct {
	ID         string
	Source     string
	RowCount   int64
	ImportedAt time.Time
}

func (q *Queries) CreateImport(ctx context.Context, arg CreateImportParams) error {
	_, err := q.db.ExecContext(ctx, createImport, arg.ID, arg.Source, arg.RowCount, arg.ImportedAt)
	return err
}

const latestImport = `
SELECT id, source, row_count, imported_at
FROM imports
ORDER BY imported_at DESC, rowid DESC
LIMIT 1`

type Import struct {
	ID         string
	Source     string
	RowCount   int64
	ImportedAt time.Time
}

func (q *Queries) LatestImport(ctx context.Context) (Import, error) {
	row := q.db.QueryRowContext(ctx, latestImport)
	var i Import
	err := row.Scan(&i.ID, &i.Source, &i.RowCount, &i.ImportedAt)
	return i, err
}
