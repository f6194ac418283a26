package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process SimilaritySearch backed by brute-force cosine
// similarity. It backs development setups and tests; production deployments
// use PgVectorStore.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
}

var _ SimilaritySearch = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[string]Document)}
}

// Upsert implements SimilaritySearch.
func (store *MemoryStore) Upsert(_ context.Context, documents []Document) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, document := range documents {
		store.documents[document.ID] = document
	}
	return nil
}

// Len returns the number of stored documents.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.documents)
}

// Search implements SimilaritySearch with brute-force cosine ranking.
// Ties are broken by document ID so results are deterministic.
func (store *MemoryStore) Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Store: "memory", Message: "context done", Err: err}
	}
	if topK <= 0 {
		return nil, nil
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	type scored struct {
		id    string
		match Match
	}

	candidates := make([]scored, 0, len(store.documents))
	for id, document := range store.documents {
		if !matchesFilter(document.Metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{
			id: id,
			match: Match{
				Text:     document.Text,
				Score:    cosineSimilarity(queryVector, document.Embedding),
				Metadata: document.Metadata,
			},
		})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].match.Score != candidates[b].match.Score {
			return candidates[a].match.Score > candidates[b].match.Score
		}
		return candidates[a].id < candidates[b].id
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := make([]Match, len(candidates))
	for i, candidate := range candidates {
		matches[i] = candidate.match
	}
	return matches, nil
}

func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
