// Package gemini implements ai.ChatCompletionProvider against Google's
// Gemini generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/genstack/genstack/internal/httpjson"
	"github.com/genstack/genstack/providers/ai"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-lite"
)

// Provider is the Gemini adapter.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ ai.ChatCompletionProvider = (*Provider)(nil)

// New creates a Gemini provider. The API key defaults to the GEMINI_API_KEY
// environment variable; GEMINI_API_BASE_URL overrides the endpoint.
func New() *Provider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name returns "gemini".
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

	model := request.Model
	if model == "" {
		model = defaultModel
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)

	httpResponse, resp, err := httpjson.Post[generateContentResponse](
		ctx, p.client, url,
		map[string]string{"x-goog-api-key": p.apiKey},
		requestToGemini(request),
	)
	if err != nil {
		return nil, normalizeError(ctx, httpResponse, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "no candidates in response", nil)
	}

	return responseToGeneric(model, *resp), nil
}

func normalizeError(ctx context.Context, httpResponse *http.Response, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return ai.NewProviderError(providerName, ai.KindTimeout, "request timed out", err)
	}
	if httpResponse != nil {
		return ai.NewProviderError(providerName, ai.KindFromStatusCode(httpResponse.StatusCode), "request failed", err)
	}
	return ai.NewProviderError(providerName, ai.KindInvalidResponse, "request failed", err)
}

// IsGeminiModel reports whether a configured model name selects the Gemini
// provider. Mirrors how model names are routed when no explicit provider is
// set on an LLM node.
func IsGeminiModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemini")
}
