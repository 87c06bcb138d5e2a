// Package worker keeps per-day workbooks on disk in step with the store,
// driven by the record lifecycle events the API publishes.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"coleta/internal/amqp"
	"coleta/internal/core"
	"coleta/internal/excel"
	"coleta/internal/storage"
)

// ExportWorker regenerates the workbook of a collection day whenever one of
// its records changes. Days that empty out get their stale workbook removed.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	dir     string
}

func NewExportWorker(storage *storage.SQLiteRepository, dir string) *ExportWorker {
	return &ExportWorker{storage: storage, dir: dir}
}

// HandleRecordEvent processes one lifecycle event from AMQP.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, ev amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing record event",
		"action", ev.Action,
		"grupo", ev.Group,
		"id", ev.ID,
		"line", ev.Line,
		"date", ev.Date)

	if ev.Date == "" {
		return fmt.Errorf("event %s id=%d carries no collection date", ev.Action, ev.ID)
	}
	return w.RefreshDay(ctx, ev.Date)
}

// RefreshDay rewrites the day's workbook from the current store contents, or
// removes it when the day no longer has records.
func (w *ExportWorker) RefreshDay(ctx context.Context, date string) error {
	var grupo1, grupo2 []core.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grupo1, err = w.storage.List(gctx, core.Spec(core.Grupo1))
		return err
	})
	g.Go(func() error {
		var err error
		grupo2, err = w.storage.List(gctx, core.Spec(core.Grupo2))
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	var bundle *core.DayBundle
	for _, b := range core.BundleByDay(grupo1, grupo2) {
		if b.Date == date {
			bundle = &b
			break
		}
	}

	path := filepath.Join(w.dir, excel.Filename(date))
	if bundle == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale workbook: %w", err)
		}
		slog.InfoContext(ctx, "Day has no records, workbook removed", "date", date, "path", path)
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook file: %w", err)
	}
	if err := excel.Write(f, *bundle); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close workbook file: %w", err)
	}

	slog.InfoContext(ctx, "Workbook refreshed", "date", date, "path", path, "records", bundle.Total)
	return nil
}

// RefreshToday is the startup pass: events published while the worker was
// down are gone, so the current day is rebuilt unconditionally.
func (w *ExportWorker) RefreshToday(ctx context.Context) error {
	return w.RefreshDay(ctx, core.Today())
}
