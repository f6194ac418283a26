// Package vectorstore defines the similarity-search capability interface.
// The engine never implements its own index; it delegates ranking to an
// external store behind this interface.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/genstack/genstack/providers/embedding"
)

// Match is one ranked passage returned by a similarity search.
type Match struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Document is a passage staged into the store together with its embedding.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SimilaritySearch ranks stored passages against a query vector. Failures
// surface as *StoreError.
type SimilaritySearch interface {
	// Search returns the topK closest passages, best first. The filter
	// restricts candidates by exact metadata match; a nil filter matches all.
	Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any) ([]Match, error)

	// Upsert stages documents into the store, replacing entries with the
	// same ID.
	Upsert(ctx context.Context, documents []Document) error
}

// StoreError is the uniform failure shape for similarity-store operations.
type StoreError struct {
	Store   string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s store: %s: %v", e.Store, e.Message, e.Err)
	}
	return fmt.Sprintf("%s store: %s", e.Store, e.Message)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SearchByText embeds the query with the given provider and then runs the
// similarity search. This is the path knowledge-base nodes take: they hold a
// query string, not a vector.
func SearchByText(ctx context.Context, store SimilaritySearch, embedder embedding.Provider, query string, topK int, filter map[string]any) ([]Match, error) {
	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vector for query")
	}
	return store.Search(ctx, vectors[0], topK, filter)
}
