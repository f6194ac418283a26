package tavily

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/genstack/genstack/providers/websearch"
)

const (
	// maxPageBody caps how much of an enrichment page is read.
	maxPageBody = 2 * 1024 * 1024

	// maxMarkdown caps the converted snippet length so a single page cannot
	// dominate a downstream prompt.
	maxMarkdown = 4000

	userAgent = "genstack-websearch/1.0"
)

// fetchAsMarkdown downloads a result page and converts its HTML to markdown.
// Non-HTML content and non-200 responses are skipped rather than failing the
// whole search.
func fetchAsMarkdown(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	if pageURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", res.Status)
	}
	if contentType := res.Header.Get("Content-Type"); contentType != "" && !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("unsupported content type %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPageBody))
	if err != nil {
		return "", err
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}

	return websearch.Truncate(strings.TrimSpace(markdown), maxMarkdown), nil
}
