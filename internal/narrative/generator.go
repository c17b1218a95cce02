// Package narrative asks a chat model to explain a query result and suggest a
// chart for it.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdata/askdata/internal/answer"
	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/observability"
	"github.com/askdata/askdata/internal/resultset"
)

const (
	DefaultTokenThreshold = 185000

	maxNarrativeTokens   = 2000
	narrativeTemperature = 0.3
	narrativeTopP        = 0.9

	fallbackPrefix  = "Query executed successfully. Results: "
	rawOutputLogCap = 500
)

type Config struct {
	Preamble         string
	TruncationNotice string
	TokenThreshold   int
	TopRows          int
	BottomRows       int
}

type Generator struct {
	model  llm.Model
	cfg    Config
	logger *slog.Logger
}

// Outcome is the narrative plus the result it was written from.
type Outcome struct {
	Analysis  answer.AnalysisResult
	Data      json.RawMessage
	Truncated bool
}

func NewGenerator(model llm.Model, cfg Config, logger *slog.Logger) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.Preamble) == "" {
		return nil, fmt.Errorf("narrative prompt is required")
	}
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = DefaultTokenThreshold
	}
	if cfg.TopRows <= 0 {
		cfg.TopRows = resultset.DefaultTopRows
	}
	if cfg.BottomRows <= 0 {
		cfg.BottomRows = resultset.DefaultBottomRows
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Generator{model: model, cfg: cfg, logger: logger}, nil
}

// Generate never fails. Results estimated above the token threshold are cut
// to their first and last rows and the model is told so; a failed model call
// yields the formatted result as the narrative.
func (g *Generator) Generate(ctx context.Context, question, sql string, result json.RawMessage) Outcome {
	data := result
	formatted := format(result)
	preamble := g.cfg.Preamble
	truncated := false

	if tokens := resultset.EstimateTokens(formatted); tokens > g.cfg.TokenThreshold {
		truncated = true
		data, _ = resultset.Truncate(result, g.cfg.TopRows, g.cfg.BottomRows)
		formatted = format(data)
		preamble = g.cfg.TruncationNotice + g.cfg.Preamble
		observability.IncrementResultTruncation()
		g.logger.Info("result exceeds token threshold, truncating",
			observability.TraceAttr(ctx),
			slog.Int("estimated_tokens", tokens),
			slog.Int("threshold", g.cfg.TokenThreshold),
			slog.Int("estimated_tokens_after", resultset.EstimateTokens(formatted)),
		)
	}

	outcome := Outcome{Data: data, Truncated: truncated}
	text, err := g.model.Generate(ctx, llm.Request{
		Preamble:    preamble,
		Message:     UserMessage(question, sql, formatted),
		MaxTokens:   maxNarrativeTokens,
		Temperature: narrativeTemperature,
		TopP:        narrativeTopP,
	})
	observability.ObserveModelRequest(observability.ModelPurposeNarrative, err)
	if err != nil {
		observability.IncrementNarrativeFallback()
		g.logger.Warn("narrative generation failed, returning raw results", observability.TraceAttr(ctx), slog.Any("error", err))
		outcome.Analysis = answer.AnalysisResult{
			Response:      fallbackPrefix + formatted,
			Visualization: answer.DefaultVisualization(),
		}
		return outcome
	}

	text = strings.TrimSpace(text)
	g.logger.Debug("narrative model output", observability.TraceAttr(ctx), slog.String("output", truncateForLog(text)))
	outcome.Analysis = answer.Normalize(text)
	return outcome
}

func UserMessage(question, sql, formattedResult string) string {
	return fmt.Sprintf(`DATA ANALYSIS TASK

User Question: %s

SQL Query Executed: %s

Query Results:
%s

Based on the above data, provide a clear and helpful response to the user's question.

**CRITICAL**: You MUST return your response as a valid JSON object with exactly two fields: "response" (your analysis as markdown text) and "visualization" (the visualization configuration object). Return ONLY the JSON object, no additional text before or after.`, question, sql, formattedResult)
}

func format(result json.RawMessage) string {
	formatted, err := resultset.Format(result)
	if err != nil {
		return string(result)
	}
	return formatted
}

func truncateForLog(text string) string {
	if len(text) <= rawOutputLogCap {
		return text
	}
	return text[:rawOutputLogCap] + "..."
}
