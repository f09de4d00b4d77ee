package reasoning

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIReasoner calls the OpenAI chat completions API
type OpenAIReasoner struct {
	client openai.Client
	model  string
}

// NewOpenAIReasoner creates an OpenAI reasoner
func NewOpenAIReasoner(apiKey, model string, opts ...option.RequestOption) *OpenAIReasoner {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIReasoner{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name returns the provider name
func (r *OpenAIReasoner) Name() string {
	return "OpenAI"
}

// Invoke sends the prompt as a single user message
func (r *OpenAIReasoner) Invoke(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := ApplyOptions(opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(o.MaxTokens)),
	}
	// Zero is a valid setting, always sent
	params.Temperature = openai.Float(o.Temperature)

	response, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	// No choices is an empty completion, not a transport failure
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}
