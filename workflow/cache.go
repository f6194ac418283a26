package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// ContentHash returns a stable hash of the graph definition. Node and edge
// order are part of the identity: reordering edges changes fan-in semantics,
// so it must change the hash.
func ContentHash(graph *Graph) (string, error) {
	encoded, err := json.Marshal(graph)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// ValidationCache memoizes Validate results keyed by graph content hash.
// It is an explicitly owned object injected into whoever validates graphs,
// never package-level state. Safe for concurrent use.
type ValidationCache struct {
	mu      sync.RWMutex
	results map[string]ValidationResult
}

// NewValidationCache creates an empty cache.
func NewValidationCache() *ValidationCache {
	return &ValidationCache{results: make(map[string]ValidationResult)}
}

// Validate returns the cached result for the graph's content hash, running
// Validate on a miss. A graph mutation produces a new hash, so stale entries
// are never served; old entries are left to be overwritten since workflows
// number in the dozens, not millions.
func (cache *ValidationCache) Validate(graph *Graph) (ValidationResult, error) {
	hash, err := ContentHash(graph)
	if err != nil {
		return ValidationResult{}, err
	}

	cache.mu.RLock()
	cached, hit := cache.results[hash]
	cache.mu.RUnlock()
	if hit {
		return cached, nil
	}

	result := Validate(graph)

	cache.mu.Lock()
	cache.results[hash] = result
	cache.mu.Unlock()

	return result, nil
}
