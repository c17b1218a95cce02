// Package pipeline answers a natural-language question end to end: generate
// SQL, run it, then describe the result.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdata/askdata/internal/answer"
	"github.com/askdata/askdata/internal/narrative"
	"github.com/askdata/askdata/internal/observability"
)

var (
	ErrInvalidBody     = errors.New("invalid JSON in request body")
	ErrMissingQuestion = errors.New("missing required field: query")
)

const (
	invalidBodyMessage     = "Invalid JSON in request body"
	missingQuestionMessage = "Missing required field: query"
	internalErrorMessage   = "Internal server error"
)

type SQLGenerator interface {
	Generate(ctx context.Context, question string) (string, error)
}

type SQLExecutor interface {
	Execute(ctx context.Context, sql string) json.RawMessage
}

type NarrativeGenerator interface {
	Generate(ctx context.Context, question, sql string, result json.RawMessage) narrative.Outcome
}

type Status int

const (
	StatusOK Status = iota
	StatusClientError
	StatusServerError
)

// Response is the transport-neutral result of handling one request body.
type Response struct {
	Status Status
	Body   any
}

func (r Response) Succeeded() bool {
	return r.Status == StatusOK
}

type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Orchestrator struct {
	sql       SQLGenerator
	executor  SQLExecutor
	narrative NarrativeGenerator
	logger    *slog.Logger
}

func New(sql SQLGenerator, executor SQLExecutor, narrative NarrativeGenerator, logger *slog.Logger) (*Orchestrator, error) {
	if sql == nil {
		return nil, fmt.Errorf("sql generator is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("sql executor is required")
	}
	if narrative == nil {
		return nil, fmt.Errorf("narrative generator is required")
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Orchestrator{sql: sql, executor: executor, narrative: narrative, logger: logger}, nil
}

// Handle validates body and runs the pipeline. It never returns an error:
// every failure is reported as an error-shaped Response.
func (o *Orchestrator) Handle(ctx context.Context, body []byte) (resp Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			o.logger.Error("pipeline panic", observability.TraceAttr(ctx), slog.Any("panic", recovered))
			resp = serverError(fmt.Errorf("panic: %v", recovered))
		}
	}()

	question, err := ParseQuestion(body)
	if err != nil {
		o.logger.Info("rejected request", observability.TraceAttr(ctx), slog.Any("error", err))
		message := invalidBodyMessage
		if errors.Is(err, ErrMissingQuestion) {
			message = missingQuestionMessage
		}
		return Response{Status: StatusClientError, Body: ErrorBody{Error: message}}
	}

	final, err := o.Answer(ctx, question)
	if err != nil {
		o.logger.Error("pipeline failed", observability.TraceAttr(ctx), slog.Any("error", err))
		return serverError(err)
	}
	return Response{Status: StatusOK, Body: final}
}

// Answer runs the three stages for a validated question.
func (o *Orchestrator) Answer(ctx context.Context, question string) (answer.FinalAnswer, error) {
	logger := o.logger.With(observability.TraceAttr(ctx))
	logger.Info("processing question", slog.String("question", question))

	start := time.Now()
	sql, err := o.sql.Generate(ctx, question)
	observability.ObserveStage(observability.StageGenerateSQL, time.Since(start))
	if err != nil {
		return answer.FinalAnswer{}, fmt.Errorf("generate sql: %w", err)
	}
	logger.Info("generated sql", slog.String("sql", sql), slog.Duration("elapsed", time.Since(start)))

	start = time.Now()
	result := o.executor.Execute(ctx, sql)
	observability.ObserveStage(observability.StageExecuteSQL, time.Since(start))
	logger.Info("executed sql", slog.Int("result_bytes", len(result)), slog.Duration("elapsed", time.Since(start)))

	start = time.Now()
	outcome := o.narrative.Generate(ctx, question, sql, result)
	observability.ObserveStage(observability.StageGenerateResponse, time.Since(start))
	logger.Info("generated response", slog.Bool("truncated", outcome.Truncated), slog.Duration("elapsed", time.Since(start)))

	return answer.FinalAnswer{
		Query:         question,
		SQL:           sql,
		Data:          outcome.Data,
		Response:      outcome.Analysis.Response,
		Visualization: outcome.Analysis.Visualization,
	}, nil
}

// ParseQuestion extracts the trimmed "query" field from a JSON object body.
func ParseQuestion(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", ErrInvalidBody
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return "", ErrInvalidBody
	}
	raw, ok := payload["query"]
	if !ok {
		return "", ErrMissingQuestion
	}
	var question string
	if err := json.Unmarshal(raw, &question); err != nil || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return "", ErrMissingQuestion
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrMissingQuestion
	}
	return question, nil
}

func serverError(err error) Response {
	return Response{Status: StatusServerError, Body: ErrorBody{Error: internalErrorMessage, Details: err.Error()}}
}
