package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// chatProvider speaks the OpenAI chat-completions wire format. OpenRouter is
// the same envelope with a different base URL and attribution headers.
type chatProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	headers map[string]string
	client  *http.Client
}

func newOpenAI(baseURL, apiKey, model string) (Provider, error) {
	if apiKey == "" || model == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &chatProvider{
		name:    "openai",
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func newOpenRouter(apiKey, model string) (Provider, error) {
	if apiKey == "" || model == "" {
		return nil, ErrNotConfigured
	}
	return &chatProvider{
		name:    "openrouter",
		baseURL: defaultOpenRouterBaseURL,
		apiKey:  apiKey,
		model:   model,
		headers: map[string]string{
			"HTTP-Referer": "https://souqcal.app",
			"X-Title":      "souqcal",
		},
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *chatProvider) Name() string {
	return p.name
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *chatProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := chatRequest{
		Model:     p.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: opts.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Message: "marshaling request", Err: err}
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Message: "completion request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Message: "reading response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Provider: p.name,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("upstream error: %s", truncate(string(respBody), 200)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ProviderError{Provider: p.name, Message: "parsing response envelope", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.name, Message: "empty completion response"}
	}

	text := parsed.Choices[0].Message.Content
	if opts.JSONMode {
		extracted, err := ExtractJSON(text)
		if err != nil {
			return "", &ProviderError{Provider: p.name, Message: "response is not valid JSON", Err: err}
		}
		return extracted, nil
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
