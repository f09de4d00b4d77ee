package reasoning

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiReasoner calls the Google Gemini API
type GeminiReasoner struct {
	client *genai.Client
	model  string
}

// NewGeminiReasoner creates a Gemini reasoner
func NewGeminiReasoner(ctx context.Context, apiKey, model string) (*GeminiReasoner, error) {
	return newGeminiReasoner(ctx, apiKey, model, "")
}

// newGeminiReasoner allows overriding the API host with a non-empty baseURL
func newGeminiReasoner(ctx context.Context, apiKey, model, baseURL string) (*GeminiReasoner, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return &GeminiReasoner{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (r *GeminiReasoner) Name() string {
	return "Gemini"
}

// Invoke sends the prompt as a single user turn
func (r *GeminiReasoner) Invoke(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := ApplyOptions(opts...)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), geminiConfig(o))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func geminiConfig(o CallOptions) *genai.GenerateContentConfig {
	temp := float32(o.Temperature)
	return &genai.GenerateContentConfig{
		MaxOutputTokens: int32(o.MaxTokens),
		Temperature:     &temp,
	}
}
