// Package openai implements embedding.Provider against the OpenAI
// embeddings API.
package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"

	"github.com/genstack/genstack/internal/httpjson"
	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/embedding"
)

const (
	providerName       = "openai"
	defaultBaseURL     = "https://api.openai.com/v1"
	embeddingsEndpoint = "/embeddings"
	defaultModel       = "text-embedding-3-small"
)

// Provider is the OpenAI embeddings adapter.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ embedding.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithModel overrides the default embedding model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithAPIKey overrides the key read from OPENAI_API_KEY.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New creates an OpenAI embeddings provider.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Name returns "openai".
func (p *Provider) Name() string { return providerName }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements embedding.Provider. The API may return data out of order,
// so results are re-sorted by index before being returned.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.KindAuth, "API key is not set", nil)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	httpResponse, resp, err := httpjson.Post[embeddingsResponse](
		ctx, p.client, p.baseURL+embeddingsEndpoint,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		embeddingsRequest{Model: p.model, Input: texts},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, ai.NewProviderError(providerName, ai.KindTimeout, "request timed out", err)
		}
		if httpResponse != nil {
			return nil, ai.NewProviderError(providerName, ai.KindFromStatusCode(httpResponse.StatusCode), "request failed", err)
		}
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "request failed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "embedding count does not match input count", nil)
	}

	sort.Slice(resp.Data, func(a, b int) bool { return resp.Data[a].Index < resp.Data[b].Index })

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}
