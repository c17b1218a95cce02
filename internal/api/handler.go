package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdata/askdata/internal/config"
	"github.com/askdata/askdata/internal/observability"
	"github.com/askdata/askdata/internal/pipeline"
)

type ReadinessCheck func(ctx context.Context) error

// Asker answers one raw ask request body.
type Asker interface {
	Handle(ctx context.Context, body []byte) pipeline.Response
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Asker             Asker
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "not_ready",
				"error":    err.Error(),
				"trace_id": observability.TraceIDFromContext(r.Context()),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("OPTIONS /v1/ask", handleAskPreflight)
	mux.HandleFunc("OPTIONS /{$}", handleAskPreflight)

	var askHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			askHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, pipeline.ErrorBody{
					Error:   "Internal server error",
					Details: "auth middleware is required by configuration",
				})
			})
		} else {
			askHandler = deps.AuthMiddleware(askHandler)
		}
	}
	mux.Handle("POST /v1/ask", askHandler)
	mux.Handle("POST /{$}", askHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckModelConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		switch cfg.Model.Provider {
		case config.ModelProviderOCI:
			if cfg.Model.CompartmentID == "" {
				return errors.New("oci compartment id is not configured")
			}
		default:
			if cfg.Model.APIKey == "" {
				return errors.New("model api key is not configured")
			}
		}
		return nil
	}
}

func CheckQueryBackendConfig(cfg config.Config) ReadinessCheck {
	return func(ctx context.Context) error {
		switch cfg.Query.Backend {
		case config.QueryBackendHTTP:
			if cfg.Query.Endpoint == "" {
				return errors.New("sql endpoint is not configured")
			}
		case config.QueryBackendPostgres:
			if cfg.Query.PostgresDSN == "" {
				return errors.New("postgres dsn is not configured")
			}
		case config.QueryBackendDuckDB:
			return CheckObjectStoreConfig(cfg)(ctx)
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
