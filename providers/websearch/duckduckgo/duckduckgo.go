// Package duckduckgo implements websearch.Provider against the DuckDuckGo
// Instant Answer API. It needs no API key, which makes it the default search
// backend for workflows that have not configured one.
package duckduckgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/websearch"
)

const (
	providerName   = "duckduckgo"
	defaultBaseURL = "https://api.duckduckgo.com"
	userAgent      = "genstack-websearch/1.0"
	maxTopics      = 10
)

// Provider is the DuckDuckGo adapter.
type Provider struct {
	baseURL string
	client  *http.Client
}

var _ websearch.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// New creates a DuckDuckGo provider.
func New(opts ...Option) *Provider {
	provider := &Provider{
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Name returns "duckduckgo".
func (p *Provider) Name() string { return providerName }

// ddgResponse mirrors the Instant Answer API payload. Only the fields the
// adapter consumes are declared.
type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search implements websearch.Provider. The Instant Answer API returns an
// abstract plus related topics; both are mapped into ranked results.
func (p *Provider) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("no_html", "1")
	params.Add("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "creating request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, ai.NewProviderError(providerName, ai.KindTimeout, "request timed out", err)
		}
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, ai.NewProviderError(providerName, ai.KindFromStatusCode(res.StatusCode),
			fmt.Sprintf("unexpected status %s", res.Status), nil)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "reading response", err)
	}

	var payload ddgResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ai.NewProviderError(providerName, ai.KindInvalidResponse, "decoding response", err)
	}

	return resultsFromPayload(query, payload), nil
}

func resultsFromPayload(query string, payload ddgResponse) []websearch.Result {
	results := make([]websearch.Result, 0, maxTopics+1)

	if payload.AbstractText != "" {
		title := payload.Heading
		if title == "" {
			title = query
		}
		snippet := payload.AbstractText
		if payload.Answer != "" {
			snippet = payload.Answer + "\n" + snippet
		}
		results = append(results, websearch.Result{
			Title:   title,
			Snippet: snippet,
			URL:     payload.AbstractURL,
		})
	}

	for _, topic := range payload.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		if len(results) >= maxTopics {
			break
		}
		results = append(results, websearch.Result{
			Title:   topicTitle(topic.Text),
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
	}

	return results
}

// topicTitle extracts the leading phrase of a related-topic text as a title.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return websearch.Truncate(text, 60)
}
