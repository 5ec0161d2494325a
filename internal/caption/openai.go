package caption

import (
	"context"
	"net/http"

	"github.com/DMarby/postcard-poodle/internal/filter"
	"github.com/DMarby/postcard-poodle/internal/tracing"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults for the OpenAI provider
const (
	DefaultModel       = openai.GPT4oMini
	DefaultMaxTokens   = 50
	DefaultTemperature = 0.9
)

// OpenAI generates captions with the OpenAI chat completions API
type OpenAI struct {
	APIKey      string
	BaseURL     string // Optional, defaults to the public API
	Model       string
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
	Tracer      *tracing.Tracer
}

// Generate requests a caption for the filter.
// The API key is checked on every call so a missing key fails before any request is made.
func (o *OpenAI) Generate(ctx context.Context, kind filter.Kind) (string, error) {
	if o.APIKey == "" {
		return "", ErrMissingCredential
	}

	ctx, span := o.Tracer.Start(ctx, "caption.OpenAI.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("filter", kind.String()))

	resp, err := o.client().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model(),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: PromptFor(kind.String()),
			},
		},
		MaxTokens:   o.maxTokens(),
		Temperature: o.temperature(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "caption request failed")
		return "", &ProviderError{Err: err}
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return Normalize(text), nil
}

func (o *OpenAI) client() *openai.Client {
	config := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		config.BaseURL = o.BaseURL
	}

	if o.HTTPClient != nil {
		config.HTTPClient = o.HTTPClient
	}

	return openai.NewClientWithConfig(config)
}

func (o *OpenAI) model() string {
	if o.Model == "" {
		return DefaultModel
	}

	return o.Model
}

func (o *OpenAI) maxTokens() int {
	if o.MaxTokens <= 0 {
		return DefaultMaxTokens
	}

	return o.MaxTokens
}

func (o *OpenAI) temperature() float32 {
	if o.Temperature <= 0 {
		return DefaultTemperature
	}

	return o.Temperature
}
