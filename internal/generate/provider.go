// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// Provider produces text for a prompt. Implementations make a single
// attempt; the Engine owns retries.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one provider call.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ErrEmptyOutput marks a call that succeeded but returned no text. It is
// treated as transient.
var ErrEmptyOutput = errors.New("provider returned empty output")

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
	Err      error
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Transient reports whether retrying the call may succeed.
func (e *StatusError) Transient() bool { return httputil.Retryable(e.Code) }

// Transient classifies a provider error: timeouts, connection failures,
// throttling, 5xx and empty output are worth retrying; everything else
// (bad requests, auth, cancellation) is not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	if errors.Is(err, ErrEmptyOutput) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// NewProvider builds the provider selected by cfg.
func NewProvider(cfg types.GenerationConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case types.ProviderOllama, "":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, client), nil
	case types.ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, client)
	case types.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, client)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
