// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultOllamaURL is the local Ollama server.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is used when no model is configured.
	DefaultOllamaModel = "llama3.1:8b"

	ollamaTopP = 0.9
)

// OllamaProvider calls the /api/generate endpoint of an Ollama server.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider returns a provider for baseURL. Empty arguments take the
// defaults; a nil client uses http.DefaultClient.
func NewOllamaProvider(baseURL, model string, client *http.Client) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: client,
	}
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

// Model returns the configured model.
func (p *OllamaProvider) Model() string { return p.model }

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Generate runs one non-streaming completion.
func (p *OllamaProvider) Generate(ctx context.Context, r Request) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  p.model,
		Prompt: r.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: r.Temperature,
			TopP:        ollamaTopP,
			NumPredict:  r.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Provider: "ollama", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if result.Response == nil {
		return "", fmt.Errorf("ollama: response field missing")
	}
	text := strings.TrimSpace(*result.Response)
	if text == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyOutput)
	}
	return text, nil
}
