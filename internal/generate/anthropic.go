// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicProvider calls the Claude Messages API.
type AnthropicProvider struct {
	msgs  *anthropicsdk.MessageService
	model string
}

// NewAnthropicProvider returns a Claude provider. The SDK's own retries are
// disabled.
func NewAnthropicProvider(apiKey, baseURL, model string, client *http.Client) (*AnthropicProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key required")
	}
	if model == "" {
		model = DefaultAnthropicModel
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

	c := anthropicsdk.NewClient(opts...)
	return &AnthropicProvider{msgs: &c.Messages, model: model}, nil
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Model returns the configured model.
func (p *AnthropicProvider) Model() string { return p.model }

// Generate sends the prompt as a single user message and concatenates the
// text blocks of the reply.
func (p *AnthropicProvider) Generate(ctx context.Context, r Request) (string, error) {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	msg, err := p.msgs.New(ctx, anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: param.NewOpt(r.Temperature),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(r.Prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "anthropic", Code: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyOutput)
	}
	return text, nil
}
