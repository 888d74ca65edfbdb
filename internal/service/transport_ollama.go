package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"llama-stylist/internal/config"

	"github.com/ollama/ollama/api"
)

// ollamaTransport uses the native ollama generate API without streaming.
type ollamaTransport struct {
	client *api.Client
	model  string
}

func newOllamaTransport(cfg *config.Config, httpClient *http.Client) (*ollamaTransport, error) {
	// api.NewClient wants the base URL without the /v1 suffix
	baseURL := strings.TrimSuffix(cfg.LLMAPIURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama base url %q: %w", baseURL, err)
	}
	return &ollamaTransport{
		client: api.NewClient(parsedURL, httpClient),
		model:  cfg.LLMModel,
	}, nil
}

func (t *ollamaTransport) Name() string { return config.BackendOllama }

func (t *ollamaTransport) Call(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  t.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"num_predict": params.MaxTokens,
		},
	}

	var sb strings.Builder
	err := t.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("%w: %d %s", ErrBackendStatus, statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
