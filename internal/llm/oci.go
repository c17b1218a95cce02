package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/common/auth"
	"github.com/oracle/oci-go-sdk/v65/generativeaiinference"
)

type OCIConfig struct {
	CompartmentID string
	ModelID       string
	Endpoint      string
	ConfigFile    string
	Profile       string
	Timeout       time.Duration
	Logger        *slog.Logger
}

type ociChatClient interface {
	Chat(ctx context.Context, request generativeaiinference.ChatRequest) (generativeaiinference.ChatResponse, error)
}

// OCIModel calls a Cohere chat model through OCI Generative AI inference.
type OCIModel struct {
	client        ociChatClient
	compartmentID string
	modelID       string
}

type ociCredentialSource struct {
	name    string
	resolve func() (common.ConfigurationProvider, error)
}

func NewOCIModel(cfg OCIConfig) (*OCIModel, error) {
	compartmentID := strings.TrimSpace(cfg.CompartmentID)
	if compartmentID == "" {
		return nil, fmt.Errorf("oci compartment id is required")
	}
	modelID := strings.TrimSpace(cfg.ModelID)
	if modelID == "" {
		return nil, fmt.Errorf("oci model id is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	configFile := expandHome(cfg.ConfigFile)
	profile := cfg.Profile
	provider, err := resolveOCICredentials(logger,
		ociCredentialSource{name: "resource_principal", resolve: func() (common.ConfigurationProvider, error) {
			return auth.ResourcePrincipalConfigurationProvider()
		}},
		ociCredentialSource{name: "config_file", resolve: func() (common.ConfigurationProvider, error) {
			return common.ConfigurationProviderFromFileWithProfile(configFile, profile, "")
		}},
	)
	if err != nil {
		return nil, err
	}

	client, err := generativeaiinference.NewGenerativeAiInferenceClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("create oci inference client: %w", err)
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		client.Host = endpoint
	}
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return newOCIModel(&client, compartmentID, modelID), nil
}

func newOCIModel(client ociChatClient, compartmentID, modelID string) *OCIModel {
	return &OCIModel{client: client, compartmentID: compartmentID, modelID: modelID}
}

// resolveOCICredentials returns the first source that yields a usable
// configuration provider.
func resolveOCICredentials(logger *slog.Logger, sources ...ociCredentialSource) (common.ConfigurationProvider, error) {
	var failures []string
	for _, source := range sources {
		provider, err := source.resolve()
		if err == nil {
			logger.Debug("resolved oci credentials", slog.String("source", source.name))
			return provider, nil
		}
		logger.Debug("oci credential source unavailable", slog.String("source", source.name), slog.Any("error", err))
		failures = append(failures, fmt.Sprintf("%s: %v", source.name, err))
	}
	return nil, fmt.Errorf("resolve oci credentials: %s", strings.Join(failures, "; "))
}

func (m *OCIModel) Generate(ctx context.Context, req Request) (string, error) {
	response, err := m.client.Chat(ctx, generativeaiinference.ChatRequest{
		ChatDetails: buildOCIChatDetails(m.compartmentID, m.modelID, req),
	})
	if err != nil {
		return "", fmt.Errorf("oci chat: %w", err)
	}
	return ociResponseText(response.ChatResult)
}

func buildOCIChatDetails(compartmentID, modelID string, req Request) generativeaiinference.ChatDetails {
	chat := generativeaiinference.CohereChatRequest{
		Message:     common.String(req.Message),
		MaxTokens:   common.Int(req.MaxTokens),
		Temperature: common.Float64(req.Temperature),
		TopP:        common.Float64(req.TopP),
		IsStream:    common.Bool(false),
	}
	if req.Preamble != "" {
		chat.PreambleOverride = common.String(req.Preamble)
	}
	return generativeaiinference.ChatDetails{
		CompartmentId: common.String(compartmentID),
		ServingMode:   generativeaiinference.OnDemandServingMode{ModelId: common.String(modelID)},
		ChatRequest:   chat,
	}
}

func ociResponseText(result generativeaiinference.ChatResult) (string, error) {
	var text *string
	switch chat := result.ChatResponse.(type) {
	case generativeaiinference.CohereChatResponse:
		text = chat.Text
	case *generativeaiinference.CohereChatResponse:
		if chat != nil {
			text = chat.Text
		}
	case nil:
		return "", fmt.Errorf("oci chat returned no response")
	default:
		return "", fmt.Errorf("unsupported oci chat response %T", chat)
	}
	if text == nil {
		return "", fmt.Errorf("oci chat response has no text")
	}
	return *text, nil
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
