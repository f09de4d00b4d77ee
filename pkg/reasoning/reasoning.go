// Package reasoning wraps the language model providers used to plan tool calls
// and to write the final answer. Every provider is reduced to a single
// prompt-in, completion-out call.
package reasoning

import (
	"context"
	"fmt"

	"github.com/harun/stockagent/internal/config"
)

// Reasoner turns a prompt into a text completion
type Reasoner interface {
	// Invoke sends the prompt and returns the completion text
	Invoke(ctx context.Context, prompt string, opts ...Option) (string, error)

	// Name returns the provider name used in user-visible error text
	Name() string
}

// CallOptions holds per-call sampling parameters
type CallOptions struct {
	MaxTokens   int
	Temperature float64
}

// Option configures a single Invoke call
type Option func(*CallOptions)

// WithMaxTokens caps the completion length
func WithMaxTokens(n int) Option {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(o *CallOptions) {
		o.Temperature = t
	}
}

const defaultMaxTokens = 300

// ApplyOptions resolves opts over the defaults
func ApplyOptions(opts ...Option) CallOptions {
	o := CallOptions{MaxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

// New creates the reasoner selected by cfg.Provider
func New(ctx context.Context, cfg config.ReasoningConfig) (Reasoner, error) {
	switch cfg.Provider {
	case "bedrock":
		return NewBedrockReasoner(ctx, cfg.Region, cfg.Model)
	case "anthropic":
		return NewAnthropicReasoner(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAIReasoner(cfg.APIKey, cfg.Model), nil
	case "gemini":
		return NewGeminiReasoner(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
