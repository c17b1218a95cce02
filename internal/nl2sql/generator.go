// Package nl2sql turns a natural-language question into a single Oracle SQL
// statement using a chat model.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/observability"
)

const (
	maxSQLTokens   = 512
	sqlTemperature = 0.3
	sqlTopP        = 1.0
)

var ErrEmptySQL = errors.New("model returned empty SQL")

var doubleQuotedLiteral = regexp.MustCompile(`=\s*"([^"]+)"`)

type Generator struct {
	model    llm.Model
	preamble string
}

func NewGenerator(model llm.Model, preamble string) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(preamble) == "" {
		return nil, fmt.Errorf("sql generation prompt is required")
	}
	return &Generator{model: model, preamble: preamble}, nil
}

// Generate asks the model for SQL answering question and returns it cleaned.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	raw, err := g.model.Generate(ctx, llm.Request{
		Preamble:    g.preamble,
		Message:     UserMessage(question),
		MaxTokens:   maxSQLTokens,
		Temperature: sqlTemperature,
		TopP:        sqlTopP,
	})
	observability.ObserveModelRequest(observability.ModelPurposeSQL, err)
	if err != nil {
		return "", err
	}

	sql := CleanSQL(raw)
	if sql == "" {
		return "", ErrEmptySQL
	}
	return sql, nil
}

func UserMessage(question string) string {
	return fmt.Sprintf("User Question: %s\n\nReturn ONLY raw Oracle SQL:", question)
}

// CleanSQL removes markdown fences and trailing semicolons, and rewrites
// double-quoted comparison values as single-quoted string literals.
func CleanSQL(raw string) string {
	sql := strings.TrimSpace(raw)
	sql = strings.ReplaceAll(sql, "```sql", "")
	sql = strings.ReplaceAll(sql, "```", "")
	sql = strings.TrimSpace(sql)
	sql = strings.TrimRight(sql, ";")
	sql = strings.TrimSpace(sql)
	return doubleQuotedLiteral.ReplaceAllString(sql, "= '${1}'")
}
