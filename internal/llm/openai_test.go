package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIModelGenerate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	}))
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "secret", Model: "gpt-5"})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	text, err := model.Generate(context.Background(), Request{Preamble: "system", Message: "user", MaxTokens: 512, Temperature: 0.3, TopP: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "SELECT 1" {
		t.Fatalf("Generate() = %q", text)
	}
	if got.Model != "gpt-5" || got.MaxTokens != 512 || got.Temperature != 0.3 || got.TopP != 1 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestOpenAIModelGenerateReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{BaseURL: server.URL, APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	_, err = model.Generate(context.Background(), Request{Message: "q"})
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestNewOpenAIModelValidatesConfig(t *testing.T) {
	cases := []OpenAIConfig{
		{APIKey: "k", Model: "m"},
		{BaseURL: "http://x", Model: "m"},
		{BaseURL: "http://x", APIKey: "k"},
	}
	for _, cfg := range cases {
		if _, err := NewOpenAIModel(cfg); err == nil {
			t.Fatalf("NewOpenAIModel(%+v) expected error", cfg)
		}
	}
}

func TestBuildChatCompletionRequestOmitsEmptyPreamble(t *testing.T) {
	req := buildChatCompletionRequest("m", Request{Message: "only user"})
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}
}
