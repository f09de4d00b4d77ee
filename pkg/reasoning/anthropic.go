package reasoning

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicReasoner calls the Anthropic Messages API
type AnthropicReasoner struct {
	client anthropic.Client
	model  string
}

// NewAnthropicReasoner creates an Anthropic reasoner
func NewAnthropicReasoner(apiKey, model string, opts ...option.RequestOption) *AnthropicReasoner {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicReasoner{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Name returns the provider name
func (r *AnthropicReasoner) Name() string {
	return "Anthropic"
}

// Invoke sends the prompt as a single user message
func (r *AnthropicReasoner) Invoke(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := ApplyOptions(opts...)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(o.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	// Zero is a valid setting, always sent
	params.Temperature = anthropic.Float(o.Temperature)

	response, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
