// Package openai implements ai.ChatCompletionProvider against the OpenAI
// chat-completions API.
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/genstack/genstack/internal/httpjson"
	"github.com/genstack/genstack/providers/ai"
)

const (
	providerName            = "openai"
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
	defaultModel            = "gpt-4o-mini"
)

// Provider is the OpenAI adapter. The zero value is not usable; construct it
// with New.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ ai.ChatCompletionProvider = (*Provider)(nil)

// New creates an OpenAI provider. The API key defaults to the OPENAI_API_KEY
// environment variable and the base URL to the public API, both overridable
// via the With* methods.
func New() *Provider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name returns "openai".
func (p *Provider) Name() string { return providerName }

// WithAPIKey returns a copy of the provider using the given API key. The
// receiver is left untouched, so per-call overrides never leak into a shared
// registry.
func (p *Provider) WithAPIKey(apiKey string) ai.ChatCompletionProvider {
	clone := *p
	clone.apiKey = apiKey
	return &clone
}

// WithBaseURL returns a copy of the provider using the given base URL.
func (p *Provider) WithBaseURL(baseURL string) ai.ChatCompletionProvider {
	clone := *p
	clone.baseURL = baseURL
	return &clone
}

// WithHTTPClient returns a copy of the provider using the given HTTP client.
func (p *Provider) WithHTTPClient(httpClient *http.Client) ai.ChatCompletionProvider {
	clone := *p
	clone.client = httpClient
	return &clone
}

// Complete implements ai.ChatCompletionProvider.
func (p *Provider) Complete(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.KindAuth, "API key is not set", nil)
	}

	httpResponse, resp, err := httpjson.Post[chatCompletionsResponse](
		ctx, p.client, p.baseURL+chatCompletionsEndpoint,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		requestFromGeneric(request),
	)
	if err != nil {
		return nil, normalizeError(ctx, httpResponse, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "no choices in response", nil)
	}

	return responseToGeneric(*resp), nil
}

// normalizeError maps transport and HTTP failures onto the ProviderError
// taxonomy. Context deadline and cancellation both count as timeouts because
// the run budget cancels in-flight calls.
func normalizeError(ctx context.Context, httpResponse *http.Response, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return ai.NewProviderError(providerName, ai.KindTimeout, "request timed out", err)
	}
	if httpResponse != nil {
		return ai.NewProviderError(providerName, ai.KindFromStatusCode(httpResponse.StatusCode), "request failed", err)
	}
	return ai.NewProviderError(providerName, ai.KindInvalidResponse, "request failed", err)
}
