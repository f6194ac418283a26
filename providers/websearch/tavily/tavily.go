// Package tavily implements websearch.Provider against the Tavily search API.
package tavily

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/genstack/genstack/internal/httpjson"
	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/websearch"
)

const (
	providerName   = "tavily"
	defaultBaseURL = "https://api.tavily.com"
	searchEndpoint = "/search"
	maxResults     = 10
)

// Provider is the Tavily adapter.
type Provider struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	fetchPages bool
}

var _ websearch.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithAPIKey overrides the key read from TAVILY_API_KEY.
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

// WithPageFetch enables fetching the top result's page and replacing its
// snippet with the page content converted to markdown.
func WithPageFetch(enabled bool) Option {
	return func(p *Provider) { p.fetchPages = enabled }
}

// New creates a Tavily provider.
func New(opts ...Option) *Provider {
	provider := &Provider{
		apiKey:  os.Getenv("TAVILY_API_KEY"),
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Name returns "tavily".
func (p *Provider) Name() string { return providerName }

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search implements websearch.Provider.
func (p *Provider) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	if p.apiKey == "" {
		return nil, ai.NewProviderError(providerName, ai.KindAuth, "API key is not set", nil)
	}

	httpResponse, resp, err := httpjson.Post[searchResponse](
		ctx, p.client, p.baseURL+searchEndpoint, nil,
		searchRequest{APIKey: p.apiKey, Query: query, MaxResults: maxResults},
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

	results := make([]websearch.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, websearch.Result{
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
			Score:   r.Score,
		})
	}

	if p.fetchPages && len(results) > 0 {
		// Best-effort enrichment; the original snippet stands if the fetch fails.
		if markdown, fetchErr := fetchAsMarkdown(ctx, p.client, results[0].URL); fetchErr == nil && markdown != "" {
			results[0].Snippet = markdown
		}
	}

	return results, nil
}
