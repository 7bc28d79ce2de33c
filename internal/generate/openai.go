// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider calls an OpenAI-compatible Chat Completions endpoint.
type OpenAIProvider struct {
	completions *openai.ChatCompletionService
	model       string
}

// NewOpenAIProvider returns an OpenAI provider. The SDK's own retries are
// disabled.
func NewOpenAIProvider(apiKey, baseURL, model string, client *http.Client) (*OpenAIProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}

	c := openai.NewClient(opts...)
	return &OpenAIProvider{completions: &c.Chat.Completions, model: model}, nil
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the configured model.
func (p *OpenAIProvider) Model() string { return p.model }

// Generate sends the prompt as a single user message.
func (p *OpenAIProvider) Generate(ctx context.Context, r Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Temperature: openai.Float(r.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(r.Prompt),
		},
	}
	if r.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(r.MaxTokens))
	}

	completion, err := p.completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "openai", Code: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyOutput)
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyOutput)
	}
	return text, nil
}
