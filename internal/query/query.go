// Package query runs generated SQL against a backend and always yields a JSON
// result, folding failures into an error-shaped result.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdata/askdata/internal/observability"
)

const DefaultTimeout = 30 * time.Second

// Backend executes one SQL statement and returns its JSON-encoded result.
type Backend interface {
	Execute(ctx context.Context, sql string) (json.RawMessage, error)
}

type Executor struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

func NewExecutor(backend Backend, timeout time.Duration, logger *slog.Logger) (*Executor, error) {
	if backend == nil {
		return nil, fmt.Errorf("query backend is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Executor{backend: backend, timeout: timeout, logger: logger}, nil
}

// Execute never fails: backend errors, timeouts and malformed results come
// back as {"error": "SQL execution failed: ..."}.
func (e *Executor) Execute(ctx context.Context, sql string) json.RawMessage {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.backend.Execute(ctx, sql)
	if err == nil && !json.Valid(result) {
		err = fmt.Errorf("backend returned invalid JSON")
	}
	if err != nil {
		observability.IncrementSQLExecutionFailure()
		e.logger.Warn("sql execution failed", observability.TraceAttr(ctx), slog.Any("error", err))
		return ErrorResult(err)
	}
	return result
}

func ErrorResult(err error) json.RawMessage {
	encoded, _ := json.Marshal(map[string]string{"error": "SQL execution failed: " + err.Error()})
	return encoded
}
