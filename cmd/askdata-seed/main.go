package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/askdata/askdata/internal/app"
	"github.com/askdata/askdata/internal/config"
	"github.com/askdata/askdata/internal/dataset"
	"github.com/askdata/askdata/internal/observability"
	"github.com/askdata/askdata/internal/prompts"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", slog.Any("error", err))
	}

	seed := flag.Int64("seed", 1, "random seed for generated rows")
	purchaseOrders := flag.Int("po-rows", 2000, "number of PO_DATA rows")
	tenders := flag.Int("tender-rows", 400, "number of TENDER_DATA rows")
	rowsPerFile := flag.Int("rows-per-file", dataset.DefaultRowsPerFile, "rows per Parquet part")
	withPrompts := flag.Bool("prompts", true, "also publish the embedded prompts")
	flag.Parse()

	cfg, err := config.LoadFromEnv("askdata-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := app.OpenObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	seeder, err := dataset.NewSeeder(store, logger)
	if err != nil {
		logger.Error("failed to create seeder", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := seeder.Seed(ctx, dataset.SeedConfig{
		Prefix:         cfg.Query.DatasetPrefix,
		Seed:           *seed,
		PurchaseOrders: *purchaseOrders,
		Tenders:        *tenders,
		RowsPerFile:    *rowsPerFile,
	}); err != nil {
		logger.Error("failed to seed datasets", slog.Any("error", err))
		os.Exit(1)
	}

	if *withPrompts {
		keys, err := prompts.Publish(ctx, store, cfg.Prompts.Prefix, prompts.Embedded())
		if err != nil {
			logger.Error("failed to publish prompts", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("prompts published", slog.Any("keys", keys))
	}
}
