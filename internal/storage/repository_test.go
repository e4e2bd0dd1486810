package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tradedash/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "snapshot.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTable() *core.Table {
	return core.NewTable([]core.Transaction{
		{Category: "Toys", ShippingMethod: "Air", Direction: core.Import, Customer: "Ann", Value: 100.5, Quantity: 3, Weight: 1.25},
		{Category: "Books", ShippingMethod: "Sea", Direction: core.Export, Customer: "Bob", Value: 42, Quantity: 1, Missing: core.MissingSet(0).With(core.ColWeight)},
		{Category: "Toys", ShippingMethod: "Land", Direction: core.Export, Customer: "Cid", Value: 7, Quantity: 9, Weight: 12},
	}, nil)
}

func TestLoadWithoutSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background())
	if !core.IsLoadError(err) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestReplaceAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	rec, err := repo.ReplaceTransactions(ctx, "./data/trade.csv", sampleTable())
	if err != nil {
		t.Fatalf("ReplaceTransactions: %v", err)
	}
	if rec.ID == "" || rec.Rows != 3 || rec.Source != "./data/trade.csv" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Rows(), sampleTable().Rows()) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Rows(), sampleTable().Rows())
	}
	if got.Row(1).HasMeasure(core.ColWeight) || !got.Row(1).HasMeasure(core.ColValue) {
		t.Fatalf("missing cells not preserved: %08b", got.Row(1).Missing)
	}

	latest, err := repo.LatestImport(ctx)
	if err != nil {
		t.Fatalf("LatestImport: %v", err)
	}
	if latest.ID != rec.ID || !latest.ImportedAt.Equal(fixed) {
		t.Fatalf("latest = %+v, want id %s at %v", latest, rec.ID, fixed)
	}
}

func TestReplaceDiscardsPreviousSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ReplaceTransactions(ctx, "first", sampleTable()); err != nil {
		t.Fatal(err)
	}
	second := core.NewTable([]core.Transaction{
		{Category: "Food", ShippingMethod: "Sea", Direction: core.Import, Customer: "Dee", Value: 1},
	}, nil)
	rec, err := repo.ReplaceTransactions(ctx, "second", second)
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 || got.Row(0).Category != "Food" {
		t.Fatalf("expected only the second snapshot, got %+v", got.Rows())
	}

	latest, err := repo.LatestImport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != rec.ID || latest.Source != "second" {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestEmptySnapshotLoadsEmptyTable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ReplaceTransactions(ctx, "empty", core.NewTable(nil, nil)); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", got.Len())
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
