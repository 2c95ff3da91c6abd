package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// Anthropic calls Claude through langchaingo.
type Anthropic struct {
	model  llms.Model
	params Params
}

// NewAnthropic creates an Anthropic completer.
func NewAnthropic(apiKey, baseURL string, params Params) (*Anthropic, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(apiKey),
		anthropic.WithModel(params.Model),
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	m, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create anthropic client: %w", err)
	}
	return &Anthropic{model: m, params: params}, nil
}

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(a.params.Temperature)}
	if a.params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.params.MaxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}
	return strings.TrimSpace(out), nil
}
