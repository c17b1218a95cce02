package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type GeminiModel struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model, timeout: cfg.Timeout}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	model := m.client.GenerativeModel(m.model)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	model.SetTemperature(float32(req.Temperature))
	model.SetTopP(float32(req.TopP))
	if req.Preamble != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.Preamble)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return geminiResponseText(resp)
}

func (m *GeminiModel) Close() error {
	return m.client.Close()
}

func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("gemini candidate has no content")
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if value, ok := part.(genai.Text); ok {
			text.WriteString(string(value))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini candidate has no text parts")
	}
	return text.String(), nil
}
