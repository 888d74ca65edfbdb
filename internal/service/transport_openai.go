package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"llama-stylist/internal/config"

	openaigo "github.com/sashabaranov/go-openai"
)

// openAITransport talks to an OpenAI-compatible chat completions endpoint.
type openAITransport struct {
	client *openaigo.Client
	model  string
}

func newOpenAITransport(cfg *config.Config, httpClient *http.Client) *openAITransport {
	openaiConfig := openaigo.DefaultConfig(cfg.LLMAPIKey)
	openaiConfig.BaseURL = strings.TrimSuffix(cfg.LLMAPIURL, "/")
	openaiConfig.HTTPClient = httpClient
	return &openAITransport{
		client: openaigo.NewClientWithConfig(openaiConfig),
		model:  cfg.LLMModel,
	}
}

func (t *openAITransport) Name() string { return config.BackendOpenAI }

func (t *openAITransport) Call(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: t.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   params.MaxTokens,
		Temperature: float32(params.Temperature),
	})
	if err != nil {
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %d %s", ErrBackendStatus, apiErr.HTTPStatusCode, apiErr.Message)
		}
		var reqErr *openaigo.RequestError
		if errors.As(err, &reqErr) {
			return "", fmt.Errorf("%w: %d %v", ErrBackendStatus, reqErr.HTTPStatusCode, reqErr.Err)
		}
		return "", fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
