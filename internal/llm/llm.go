// Package llm wraps the hosted chat models used to write SQL and narratives.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdata/askdata/internal/config"
)

// Request is a single-turn chat call.
type Request struct {
	Preamble    string
	Message     string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Model returns the text of one completion.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// NewModel builds the provider selected by cfg. Callers should close the
// returned model when it implements io.Closer.
func NewModel(ctx context.Context, cfg config.ModelConfig, logger *slog.Logger) (Model, error) {
	switch cfg.Provider {
	case config.ModelProviderOCI:
		return NewOCIModel(OCIConfig{
			CompartmentID: cfg.CompartmentID,
			ModelID:       cfg.ModelID,
			Endpoint:      cfg.OCIEndpoint,
			ConfigFile:    cfg.OCIConfigFile,
			Profile:       cfg.OCIProfile,
			Timeout:       cfg.Timeout,
			Logger:        logger,
		})
	case config.ModelProviderOpenAI:
		return NewOpenAIModel(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.ModelID,
			Timeout: cfg.Timeout,
		})
	case config.ModelProviderGemini:
		return NewGeminiModel(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.ModelID,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
