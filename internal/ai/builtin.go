package ai

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultBuiltinModel = "claude-3-5-haiku-latest"

// builtinProvider is the "builtin" backend, talking to the Anthropic API.
type builtinProvider struct {
	client anthropic.Client
	model  string
}

func newBuiltin(apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = defaultBuiltinModel
	}
	return &builtinProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *builtinProvider) Name() string {
	return "builtin"
}

func (p *builtinProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Message: "completion request failed", Err: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	if opts.JSONMode {
		extracted, err := ExtractJSON(text)
		if err != nil {
			return "", &ProviderError{Provider: p.Name(), Message: "response is not valid JSON", Err: err}
		}
		return extracted, nil
	}
	return text, nil
}
