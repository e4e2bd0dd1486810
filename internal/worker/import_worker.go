package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"tradedash/internal/amqp"
	"tradedash/internal/core"
	"tradedash/internal/dataset"
	applog "tradedash/internal/log"
	"tradedash/internal/storage"
)

var (
	ErrNoRows         = errors.New("dataset has no rows")
	ErrInvalidDataset = errors.New("dataset failed validation")
)

// SnapshotStore replaces the stored dataset snapshot.
type SnapshotStore interface {
	ReplaceTransactions(ctx context.Context, source string, t *core.Table) (storage.ImportRecord, error)
}

// Publisher announces a new snapshot to running dashboards.
type Publisher interface {
	PublishDatasetReload(ctx context.Context, msg *amqp.DatasetReloadMessage) error
}

// ImportWorker copies a dataset source into the snapshot store and
// publishes a reload message once the snapshot is committed.
type ImportWorker struct {
	source    dataset.Source
	store     SnapshotStore
	publisher Publisher
	logger    *applog.Logger

	runs     int64
	failures int64
}

// NewImportWorker builds a worker. publisher may be nil when AMQP is not configured.
func NewImportWorker(source dataset.Source, store SnapshotStore, publisher Publisher, logger *applog.Logger) *ImportWorker {
	return &ImportWorker{
		source:    source,
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// RunOnce imports the source a single time. A publish failure is returned
// alongside the committed record.
func (w *ImportWorker) RunOnce(ctx context.Context) (storage.ImportRecord, error) {
	atomic.AddInt64(&w.runs, 1)
	start := time.Now()

	rec, err := w.runOnce(ctx)
	if err != nil {
		atomic.AddInt64(&w.failures, 1)
		w.logger.ErrorContext(ctx, "Import failed",
			applog.FieldOperation, applog.OpImport,
			applog.FieldDatasetSource, w.source.Name(),
			applog.FieldError, err)
		return rec, err
	}

	w.logger.InfoContext(ctx, "Import completed",
		applog.FieldOperation, applog.OpImport,
		applog.FieldImportID, rec.ID,
		applog.FieldDatasetSource, rec.Source,
		applog.FieldRows, rec.Rows,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return rec, nil
}

func (w *ImportWorker) runOnce(ctx context.Context) (storage.ImportRecord, error) {
	table, err := w.source.Load(ctx)
	if err != nil {
		return storage.ImportRecord{}, err
	}
	if err := Validate(table); err != nil {
		return storage.ImportRecord{}, err
	}

	rec, err := w.store.ReplaceTransactions(ctx, w.source.Name(), table)
	if err != nil {
		return storage.ImportRecord{}, fmt.Errorf("store snapshot: %w", err)
	}

	if w.publisher == nil {
		return rec, nil
	}

	msg := amqp.NewDatasetReloadMessage(rec.Source, rec.Rows)
	if id, err := uuid.Parse(rec.ID); err == nil {
		msg.ID = id
	}
	if err := w.publisher.PublishDatasetReload(ctx, msg); err != nil {
		return rec, fmt.Errorf("publish reload for import %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Validate rejects tables without rows or with non-numeric cells in a
// numeric column. Issues are reported in column order.
func Validate(t *core.Table) error {
	if t.Len() == 0 {
		return ErrNoRows
	}
	issues := t.Issues()
	if len(issues) == 0 {
		return nil
	}
	cols := make([]string, 0, len(issues))
	for col := range issues {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	errs := make([]error, 0, len(cols))
	for _, col := range cols {
		errs = append(errs, issues[col])
	}
	return fmt.Errorf("%w: %w", ErrInvalidDataset, errors.Join(errs...))
}

// Schedule runs RunOnce immediately and then every interval until ctx is
// done. Runs never overlap.
func (w *ImportWorker) Schedule(ctx context.Context, interval time.Duration) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err := scheduler.Every(interval).Do(func() {
		// Errors are already logged by RunOnce.
		_, _ = w.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule import: %w", err)
	}

	w.logger.InfoContext(ctx, "Import scheduler started",
		applog.FieldDatasetSource, w.source.Name(),
		"interval", interval.String())

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	w.logger.Info("Import scheduler stopped")
	return nil
}

// Stats reports how many imports ran and how many failed.
func (w *ImportWorker) Stats() (runs, failures int64) {
	return atomic.LoadInt64(&w.runs), atomic.LoadInt64(&w.failures)
}
