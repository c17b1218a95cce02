package dataset

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdata/askdata/internal/storage"
)

const (
	DefaultRowsPerFile    = 5000
	parquetContentType    = "application/vnd.apache.parquet"
	defaultPurchaseOrders = 2000
	defaultTenders        = 400
)

type SeedConfig struct {
	Prefix         string
	Seed           int64
	Reference      time.Time
	PurchaseOrders int
	Tenders        int
	RowsPerFile    int
}

type SeedResult struct {
	Keys           []string
	PurchaseOrders int
	Tenders        int
}

// Seeder uploads generated tables to the object store in the layout the
// DuckDB query backend reads.
type Seeder struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

func NewSeeder(store storage.ObjectStore, logger *slog.Logger) (*Seeder, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger}, nil
}

func (s *Seeder) Seed(ctx context.Context, cfg SeedConfig) (SeedResult, error) {
	cfg = withSeedDefaults(cfg)
	generator := NewGenerator(cfg.Seed, cfg.Reference)

	orders := generator.PurchaseOrders(cfg.PurchaseOrders)
	tenders := generator.Tenders(cfg.Tenders)

	result := SeedResult{PurchaseOrders: len(orders), Tenders: len(tenders)}
	poKeys, err := uploadTable(ctx, s.store, cfg.Prefix, POTable, orders, cfg.RowsPerFile)
	if err != nil {
		return SeedResult{}, err
	}
	tenderKeys, err := uploadTable(ctx, s.store, cfg.Prefix, TenderTable, tenders, cfg.RowsPerFile)
	if err != nil {
		return SeedResult{}, err
	}
	result.Keys = append(poKeys, tenderKeys...)

	s.logger.Info("dataset seeded",
		slog.String("prefix", cfg.Prefix),
		slog.Int("po_rows", result.PurchaseOrders),
		slog.Int("tender_rows", result.Tenders),
		slog.Int("files", len(result.Keys)),
	)
	return result, nil
}

func withSeedDefaults(cfg SeedConfig) SeedConfig {
	if cfg.Prefix == "" {
		cfg.Prefix = "datasets"
	}
	if cfg.Reference.IsZero() {
		cfg.Reference = time.Now()
	}
	if cfg.PurchaseOrders <= 0 {
		cfg.PurchaseOrders = defaultPurchaseOrders
	}
	if cfg.Tenders <= 0 {
		cfg.Tenders = defaultTenders
	}
	if cfg.RowsPerFile <= 0 {
		cfg.RowsPerFile = DefaultRowsPerFile
	}
	return cfg
}

func uploadTable[T any](ctx context.Context, store storage.ObjectStore, prefix, table string, rows []T, rowsPerFile int) ([]string, error) {
	var keys []string
	for start, part := 0, 0; start < len(rows); start, part = start+rowsPerFile, part+1 {
		end := min(start+rowsPerFile, len(rows))
		key, err := storage.BuildDatasetPath(prefix, table, part)
		if err != nil {
			return nil, err
		}
		data, err := EncodeParquet(rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("encode %s part %d: %w", table, part, err)
		}
		if _, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: parquetContentType}); err != nil {
			return nil, fmt.Errorf("put %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
