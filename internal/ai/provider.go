// Package ai exposes a uniform completion interface over one of three
// backends: the builtin Anthropic API, any OpenAI-compatible server, or
// OpenRouter. Callers treat every failure as "feature unavailable".
package ai

import (
	"context"
	"errors"
	"fmt"

	"souqcal/internal/model"
)

// Options tunes a single completion call.
type Options struct {
	// JSONMode requests machine-readable output: the response is reduced to
	// a valid JSON value or the call fails with a ProviderError.
	JSONMode bool

	// MaxTokens caps the response length. Zero means the backend default.
	MaxTokens int
}

// Provider is the uniform completion contract.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrNotConfigured indicates the selected backend is missing credentials.
// Jobs skip silently (with a log line) when they see it.
var ErrNotConfigured = errors.New("ai provider not configured")

// ProviderError wraps any upstream failure: network, non-2xx status, or a
// malformed body when JSONMode was requested.
type ProviderError struct {
	Provider string
	Status   int // HTTP status when applicable, 0 otherwise
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// New selects and constructs a backend from the runtime settings.
func New(settings model.Settings) (Provider, error) {
	switch settings.AIProvider {
	case "", "builtin":
		return newBuiltin(settings.APIKey, settings.Model)
	case "openai":
		return newOpenAI(settings.BaseURL, settings.APIKey, settings.Model)
	case "openrouter":
		return newOpenRouter(settings.APIKey, settings.Model)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", settings.AIProvider)
	}
}
