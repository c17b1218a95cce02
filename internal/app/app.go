// Package app assembles the ask pipeline from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/askdata/askdata/internal/api"
	"github.com/askdata/askdata/internal/config"
	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/narrative"
	"github.com/askdata/askdata/internal/nl2sql"
	"github.com/askdata/askdata/internal/pipeline"
	"github.com/askdata/askdata/internal/prompts"
	"github.com/askdata/askdata/internal/query"
	duckdbbackend "github.com/askdata/askdata/internal/query/duckdb"
	"github.com/askdata/askdata/internal/query/httpexec"
	pgbackend "github.com/askdata/askdata/internal/query/postgres"
	"github.com/askdata/askdata/internal/storage"
	s3store "github.com/askdata/askdata/internal/storage/s3"
)

// Options overrides parts of the assembly. Zero values build everything from
// configuration.
type Options struct {
	Model       llm.Model
	ObjectStore storage.ObjectStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	Pipeline  *pipeline.Orchestrator
	Readiness api.ReadinessCheck
	closers   []io.Closer
}

// Close releases the model client and database pools opened by Build.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{}
	fail := func(err error) (*Service, error) {
		_ = svc.Close()
		return nil, err
	}

	store := opts.ObjectStore
	if store == nil && needsObjectStore(cfg) {
		opened, err := OpenObjectStore(ctx, cfg.ObjectStore)
		if err != nil {
			return fail(err)
		}
		store = opened
	}

	promptSet, err := prompts.Load(ctx, cfg.Prompts, store)
	if err != nil {
		return fail(fmt.Errorf("load prompts: %w", err))
	}

	model := opts.Model
	if model == nil {
		model, err = llm.NewModel(ctx, cfg.Model, logger)
		if err != nil {
			return fail(fmt.Errorf("initialize model: %w", err))
		}
		if closer, ok := model.(io.Closer); ok {
			svc.closers = append(svc.closers, closer)
		}
	}

	readiness := []api.ReadinessCheck{api.CheckQueryBackendConfig(cfg)}
	if opts.Model == nil {
		readiness = append(readiness, api.CheckModelConfig(cfg))
	}

	backend, db, err := openBackend(ctx, cfg, store)
	if err != nil {
		return fail(err)
	}
	if db != nil {
		svc.closers = append(svc.closers, db)
	}
	if p, ok := backend.(pinger); ok {
		readiness = append(readiness, p.Ping)
	}
	if p, ok := store.(pinger); ok && needsObjectStore(cfg) {
		readiness = append(readiness, p.Ping)
	}

	executor, err := query.NewExecutor(backend, cfg.Query.Timeout, logger)
	if err != nil {
		return fail(err)
	}
	sqlGenerator, err := nl2sql.NewGenerator(model, promptSet.SQLGeneration)
	if err != nil {
		return fail(err)
	}
	narrativeGenerator, err := narrative.NewGenerator(model, narrative.Config{
		Preamble:         promptSet.Narrative,
		TruncationNotice: promptSet.TruncationNotice,
	}, logger)
	if err != nil {
		return fail(err)
	}
	orchestrator, err := pipeline.New(sqlGenerator, executor, narrativeGenerator, logger)
	if err != nil {
		return fail(err)
	}

	svc.Pipeline = orchestrator
	svc.Readiness = api.CombineReadinessChecks(readiness...)
	return svc, nil
}

func OpenObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (*s3store.Store, error) {
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.Endpoint,
		Region:           cfg.Region,
		Bucket:           cfg.Bucket,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		UseSSL:           cfg.UseSSL,
		Prefix:           cfg.Prefix,
		AutoCreateBucket: cfg.AutoCreateBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}
	return store, nil
}

func needsObjectStore(cfg config.Config) bool {
	return cfg.Query.Backend == config.QueryBackendDuckDB || cfg.Prompts.Source == config.PromptSourceObjectStore
}

func openBackend(ctx context.Context, cfg config.Config, store storage.ObjectStore) (query.Backend, *sql.DB, error) {
	switch cfg.Query.Backend {
	case config.QueryBackendHTTP:
		backend, err := httpexec.New(cfg.Query.Endpoint, nil)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	case config.QueryBackendPostgres:
		db, err := pgbackend.Open(ctx, pgbackend.DBConfig{
			DSN:             cfg.Query.PostgresDSN,
			MaxOpenConns:    cfg.Query.MaxOpenConns,
			MaxIdleConns:    cfg.Query.MaxIdleConns,
			ConnMaxIdleTime: cfg.Query.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Query.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return pgbackend.NewBackend(db), db, nil
	case config.QueryBackendDuckDB:
		backend, err := duckdbbackend.NewBackend(store, cfg.Query.DatasetPrefix)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported query backend %q", cfg.Query.Backend)
	}
}
