package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"llama-stylist/internal/config"
)

// maxResponseBytes bounds how much of a backend body is read.
const maxResponseBytes = 4 << 20

type remoteRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// httpTransport posts {prompt, max_tokens, temperature} to a generic endpoint.
type httpTransport struct {
	url    string
	apiKey string
	client *http.Client
}

func newHTTPTransport(cfg *config.Config, client *http.Client) *httpTransport {
	return &httpTransport{url: cfg.LLMAPIURL, apiKey: cfg.LLMAPIKey, client: client}
}

func (t *httpTransport) Name() string { return config.BackendHTTP }

func (t *httpTransport) Call(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	body, err := json.Marshal(remoteRequest{Prompt: prompt, MaxTokens: params.MaxTokens, Temperature: params.Temperature})
	if err != nil {
		return "", fmt.Errorf("failed to marshal backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read body: %w", ErrBackendUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d %s", ErrBackendStatus, resp.StatusCode, truncate(string(data), 200))
	}
	return decodeResponse(data), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
