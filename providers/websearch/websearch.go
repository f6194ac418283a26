// Package websearch defines the capability interface for web-search backends.
package websearch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// snippetLimit caps how much of a result snippet makes it into a summary.
const snippetLimit = 200

// Result is one ranked web search hit.
type Result struct {
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	URL     string  `json:"url"`
	Score   float64 `json:"score,omitempty"`
}

// Provider performs a web search for a plain-text query. Failures surface as
// *ai.ProviderError so the retry layer can classify them.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)

	// Name returns the provider identifier ("tavily", "duckduckgo", ...).
	Name() string
}

// Summarize renders results as a compact numbered list suitable for feeding
// into a downstream LLM prompt.
func Summarize(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for '%s'.", query)
	}

	parts := make([]string, 0, len(results)+1)
	parts = append(parts, fmt.Sprintf("Found %d results:", len(results)))

	for i, result := range results {
		parts = append(parts, fmt.Sprintf("\n%d. %s\n   URL: %s\n   %s",
			i+1, result.Title, result.URL, Truncate(result.Snippet, snippetLimit)))
	}

	return strings.Join(parts, "\n")
}

// Truncate shortens text to at most limit bytes without splitting a UTF-8
// rune, appending an ellipsis when anything was cut.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
