// Package llm provides the reasoning collaborator used by the diagnosis
// and patch stages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucasnoah/ragdebug/internal/config"
)

var (
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown llm provider")
	// ErrMissingAPIKey is returned by New when the provider needs a key and none is configured.
	ErrMissingAPIKey = errors.New("llm api key not configured")
)

// Completer turns a prompt into a completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Params are the generation settings shared by every provider.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// New builds the configured provider client wrapped with rate limiting and retries.
func New(cfg config.LLMConfig, logger *slog.Logger) (Completer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	params := Params{Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	var base Completer
	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or llm.api_key", ErrMissingAPIKey)
		}
		c, err := NewAnthropic(cfg.APIKey, cfg.BaseURL, params)
		if err != nil {
			return nil, err
		}
		base = c
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY or llm.api_key", ErrMissingAPIKey)
		}
		base = NewOpenAI(cfg.APIKey, cfg.BaseURL, params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("llm call failed, retrying", "provider", cfg.Provider, "attempt", attempt+1, "delay", delay, "error", err)
	}

	logger.Debug("llm client ready", "provider", cfg.Provider, "model", cfg.Model)
	return WithRetry(WithRateLimit(base, cfg.RequestsPerMinute), policy), nil
}
