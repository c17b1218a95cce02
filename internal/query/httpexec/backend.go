// Package httpexec posts SQL to a remote execution endpoint.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Backend struct {
	endpoint string
	client   *http.Client
}

// New returns a backend posting to endpoint. A nil client uses a client
// without its own timeout; callers bound each call through the context.
func New(endpoint string, client *http.Client) (*Backend, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("sql endpoint is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Backend{endpoint: endpoint, client: client}, nil
}

// Execute sends {"sql": ...} and returns the decoded response body. The
// response status is not inspected; the endpoint reports failures in the body.
func (b *Backend) Execute(ctx context.Context, sql string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"sql": sql})
	if err != nil {
		return nil, fmt.Errorf("marshal sql payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build sql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post sql: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sql response body: %w", err)
	}
	var result json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode sql response (status %d): %w", resp.StatusCode, err)
	}
	return result, nil
}
