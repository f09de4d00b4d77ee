package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tidwall/gjson"
)

// bedrockAPI is the subset of the Bedrock runtime client used here
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockReasoner calls Anthropic models hosted on AWS Bedrock
type BedrockReasoner struct {
	client bedrockAPI
	model  string
}

// NewBedrockReasoner creates a Bedrock reasoner using the default AWS credential chain
func NewBedrockReasoner(ctx context.Context, region, model string) (*BedrockReasoner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockReasoner{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  model,
	}, nil
}

// Name returns the provider name
func (r *BedrockReasoner) Name() string {
	return "Bedrock"
}

// Invoke calls InvokeModel and extracts the completion text
func (r *BedrockReasoner) Invoke(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := ApplyOptions(opts...)

	body, err := bedrockRequestBody(r.model, prompt, o)
	if err != nil {
		return "", err
	}

	out, err := r.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(r.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", err
	}

	return bedrockCompletion(r.model, out.Body)
}

// usesTextCompletions reports whether the model only speaks the legacy
// Human/Assistant text completion format
func usesTextCompletions(model string) bool {
	return strings.Contains(model, "claude-v2") || strings.Contains(model, "claude-instant")
}

func bedrockRequestBody(model, prompt string, o CallOptions) ([]byte, error) {
	var payload map[string]any
	if usesTextCompletions(model) {
		payload = map[string]any{
			"prompt":               "\n\nHuman: " + prompt + "\n\nAssistant:",
			"max_tokens_to_sample": o.MaxTokens,
			"temperature":          o.Temperature,
		}
	} else {
		payload = map[string]any{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        o.MaxTokens,
			"temperature":       o.Temperature,
			"messages": []map[string]any{
				{"role": "user", "content": prompt},
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return body, nil
}

func bedrockCompletion(model string, body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid response body")
	}
	doc := gjson.ParseBytes(body)

	if usesTextCompletions(model) {
		return doc.Get("completion").String(), nil
	}

	var sb strings.Builder
	for _, block := range doc.Get("content").Array() {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
	}
	return sb.String(), nil
}
