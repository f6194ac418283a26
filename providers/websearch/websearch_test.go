package websearch

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmptyResults(t *testing.T) {
	summary := Summarize("golang generics", nil)

	assert.Equal(t, "No results found for 'golang generics'.", summary)
}

func TestSummarizeNumbersResults(t *testing.T) {
	results := []Result{
		{Title: "First", Snippet: "first snippet", URL: "https://one.example"},
		{Title: "Second", Snippet: "second snippet", URL: "https://two.example"},
	}

	summary := Summarize("query", results)

	assert.Contains(t, summary, "Found 2 results:")
	assert.Contains(t, summary, "1. First")
	assert.Contains(t, summary, "2. Second")
	assert.Contains(t, summary, "URL: https://one.example")
}

func TestSummarizeTruncatesLongSnippets(t *testing.T) {
	long := strings.Repeat("x", 500)
	summary := Summarize("query", []Result{{Title: "T", Snippet: long, URL: "https://example.com"}})

	assert.NotContains(t, summary, long)
	assert.Contains(t, summary, "...")
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	// 100 three-byte runes; a limit of 200 lands mid-rune and must back off.
	text := strings.Repeat("日", 100)

	got := Truncate(text, 200)

	require.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 66)+"...", got)
}

func TestTruncateLeavesShortTextAlone(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 200))
}
