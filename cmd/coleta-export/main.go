// Command coleta-export writes one day's collection workbook to disk,
// straight from the database, for operators who want the form without going
// through the dashboard.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"coleta/internal/config"
	"coleta/internal/core"
	"coleta/internal/excel"
	"coleta/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	date := flag.String("date", core.Today(), "collection date to export (YYYY-MM-DD)")
	out := flag.String("out", "", "output path (default Coleta_Nordson_DD-MM-YYYY.xlsx)")
	flag.Parse()

	if _, err := time.Parse("2006-01-02", *date); err != nil {
		logger.Error("Invalid date", "date", *date, "error", err)
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var grupo1, grupo2 []core.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		grupo1, err = repo.List(gctx, core.Spec(core.Grupo1))
		return err
	})
	g.Go(func() error {
		var err error
		grupo2, err = repo.List(gctx, core.Spec(core.Grupo2))
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to list records", "error", err)
		os.Exit(1)
	}

	var bundle *core.DayBundle
	for _, b := range core.BundleByDay(grupo1, grupo2) {
		if b.Date == *date {
			bundle = &b
			break
		}
	}
	if bundle == nil {
		logger.Error("No records for date", "date", *date)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = excel.Filename(*date)
	}

	f, err := os.Create(path)
	if err != nil {
		logger.Error("Failed to create output file", "error", err, "path", path)
		os.Exit(1)
	}

	if err := excel.Write(f, *bundle); err != nil {
		f.Close()
		os.Remove(path)
		logger.Error("Failed to write workbook", "error", err, "path", path)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		logger.Error("Failed to close output file", "error", err, "path", path)
		os.Exit(1)
	}

	logger.Info("Workbook written", "path", path, "date", *date, "records", bundle.Total)
}
