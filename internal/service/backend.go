package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"llama-stylist/internal/config"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Option defaults.
const (
	DefaultPatchMaxTokens = 1200
	DefaultStyleMaxTokens = 800
	DefaultTemperature    = 0.7
)

var (
	// ErrBackendUnavailable covers network failures and timeouts.
	ErrBackendUnavailable = errors.New("generation backend unavailable")
	// ErrBackendStatus is returned for a non-2xx backend response.
	ErrBackendStatus = errors.New("generation backend returned error status")
	// ErrEmptyResponse is returned when the backend answered without text.
	ErrEmptyResponse = errors.New("generation backend returned empty response")
)

// GenerationParams are the sampling parameters sent with a prompt.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
}

// ParamsFromOptions reads max_tokens and temperature from request options.
func ParamsFromOptions(options map[string]any, defaultMaxTokens int) GenerationParams {
	params := GenerationParams{MaxTokens: defaultMaxTokens, Temperature: DefaultTemperature}
	if v, ok := optionNumber(options, "max_tokens"); ok && v > 0 {
		params.MaxTokens = int(math.Min(v, math.MaxInt32))
	}
	if v, ok := optionNumber(options, "temperature"); ok && v >= 0 {
		params.Temperature = v
	}
	return params
}

func optionNumber(options map[string]any, key string) (float64, bool) {
	switch n := options[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Generator turns a prompt into raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Transport sends a prompt to one kind of remote backend.
type Transport interface {
	Name() string
	Call(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// BackendClient is the production Generator. It calls the configured remote
// transport and resolves the prompt locally when there is none or it fails.
// Generate never returns an error.
type BackendClient struct {
	transport  Transport
	httpClient *http.Client
	local      *localResolver
	timeout    time.Duration
	model      string
	logger     *zap.Logger

	// enc is set by a background load and read without waiting.
	enc       atomic.Pointer[tiktoken.Tiktoken]
	encLoaded chan struct{}
}

// NewBackendClient builds the client for cfg. A single pooled http.Client
// bounded by LLM_TIMEOUT_MS is shared by concurrent requests.
func NewBackendClient(cfg *config.Config, logger *zap.Logger) (*BackendClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("BackendClient")

	httpClient := &http.Client{
		Timeout:   cfg.LLMTimeout(),
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}

	var (
		transport Transport
		err       error
	)
	if cfg.RemoteEnabled() {
		transport, err = newTransport(cfg, httpClient)
		if err != nil {
			return nil, err
		}
		logger.Info("Remote generation backend configured",
			zap.String("backend", transport.Name()),
			zap.String("url", cfg.LLMAPIURL),
			zap.String("model", cfg.LLMModel),
			zap.Duration("timeout", cfg.LLMTimeout()),
			zap.Bool("auth", cfg.LLMAPIKey != ""),
		)
	} else {
		logger.Info("No remote generation backend configured, prompts resolve locally")
	}

	client := &BackendClient{
		transport:  transport,
		httpClient: httpClient,
		local:      newLocalResolver(rand.Float64, logger),
		timeout:    cfg.LLMTimeout(),
		model:      cfg.LLMModel,
		logger:     logger,
	}
	if cfg.LLMCountTokens && transport != nil {
		client.startEncoderLoad(encoderForModel)
	}
	return client, nil
}

func newTransport(cfg *config.Config, httpClient *http.Client) (Transport, error) {
	switch strings.ToLower(cfg.LLMBackend) {
	case config.BackendOpenAI:
		return newOpenAITransport(cfg, httpClient), nil
	case config.BackendOllama:
		return newOllamaTransport(cfg, httpClient)
	case config.BackendHTTP, "":
		return newHTTPTransport(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.LLMBackend)
	}
}

// Remote reports whether a remote transport is configured.
func (c *BackendClient) Remote() bool {
	return c.transport != nil
}

// Generate returns backend text for prompt. Remote failures are logged,
// counted and answered by the local resolver instead.
func (c *BackendClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if c.transport == nil {
		localResolutionsTotal.WithLabelValues("not_configured").Inc()
		return c.local.Resolve(prompt), nil
	}

	name := c.transport.Name()
	c.observePromptTokens(name, prompt)

	// The call runs to completion or timeout even if the request goes away.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.transport.Call(callCtx, prompt, params)
	duration := time.Since(start)
	backendRequestDuration.WithLabelValues(name).Observe(duration.Seconds())

	if err != nil {
		backendRequestsTotal.WithLabelValues(name, requestStatus(err)).Inc()
		localResolutionsTotal.WithLabelValues("remote_failed").Inc()
		c.logger.Warn("Generation backend failed, resolving prompt locally",
			zap.String("backend", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return c.local.Resolve(prompt), nil
	}

	backendRequestsTotal.WithLabelValues(name, "success").Inc()
	c.logger.Debug("Generation backend responded",
		zap.String("backend", name),
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(text)),
	)
	return text, nil
}

// Close releases pooled connections.
func (c *BackendClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func requestStatus(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrBackendStatus):
		return "error_status"
	case errors.Is(err, ErrEmptyResponse):
		return "error_empty_response"
	default:
		return "error"
	}
}

// startEncoderLoad resolves the token encoder in the background. tiktoken may
// download the BPE file with no deadline, so requests never wait for it and
// skip the token metric until the encoder is ready.
func (c *BackendClient) startEncoderLoad(load func(model string) (*tiktoken.Tiktoken, error)) {
	c.encLoaded = make(chan struct{})
	go func() {
		defer close(c.encLoaded)
		enc, err := load(c.model)
		if err != nil {
			c.logger.Warn("Token encoder unavailable, prompt token metric disabled", zap.Error(err))
			return
		}
		c.enc.Store(enc)
		c.logger.Debug("Token encoder loaded", zap.String("model", c.model))
	}()
}

func encoderForModel(model string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	return enc, err
}

func (c *BackendClient) observePromptTokens(backend, prompt string) {
	enc := c.enc.Load()
	if enc == nil {
		return
	}
	promptTokens.WithLabelValues(backend).Observe(float64(len(enc.Encode(prompt, nil, nil))))
}
