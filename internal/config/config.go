package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend kinds accepted in LLM_BACKEND.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

const apiKeySecretName = "llm_api_key"

// secretsDir is where docker secrets are mounted.
var secretsDir = "/run/secrets"

// Config holds the stylist service configuration.
type Config struct {
	Env         string `envconfig:"NODE_ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8002" validate:"required,numeric"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"*"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json" validate:"oneof=json console"`

	// Requests per minute per client IP on /patch and /style. 0 disables the limit.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60" validate:"gte=0"`

	// Generation backend. An empty URL means prompts are resolved locally.
	LLMAPIURL      string `envconfig:"LLM_API_URL" validate:"omitempty,url"`
	LLMBackend     string `envconfig:"LLM_BACKEND" default:"http" validate:"oneof=http openai ollama"`
	LLMModel       string `envconfig:"LLM_MODEL" default:"llama3"`
	LLMTimeoutMS   int    `envconfig:"LLM_TIMEOUT_MS" default:"20000" validate:"gt=0"`
	LLMCountTokens bool   `envconfig:"LLM_COUNT_TOKENS" default:"true"`
	// LLM_API_KEY or the llm_api_key docker secret.
	LLMAPIKey string `envconfig:"LLM_API_KEY"`
}

// LLMTimeout returns the backend call timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// RemoteEnabled reports whether a remote generation backend is configured.
func (c *Config) RemoteEnabled() bool {
	return c.LLMAPIURL != ""
}

// AllowedOrigins splits FRONTEND_URL. nil means every origin is allowed.
func (c *Config) AllowedOrigins() []string {
	raw := strings.TrimSpace(c.FrontendURL)
	if raw == "" || raw == "*" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LoadConfig reads an optional .env file, the environment and the API key secret.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: could not load %s: %v", envFilePath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: error checking %s: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	cfg.LLMBackend = strings.ToLower(strings.TrimSpace(cfg.LLMBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.LLMAPIKey == "" {
		key, err := readSecret(apiKeySecretName)
		switch {
		case err == nil:
			cfg.LLMAPIKey = key
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// readSecret reads a docker secret. A missing file is reported as os.ErrNotExist.
func readSecret(name string) (string, error) {
	path := filepath.Join(secretsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
