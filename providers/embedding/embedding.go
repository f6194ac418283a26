// Package embedding defines the capability interface for text-embedding
// backends and a registry used by knowledge-base nodes to select a provider
// by name.
package embedding

import (
	"context"
	"fmt"
)

// Provider turns a batch of texts into dense vectors. Failures surface as
// *ai.ProviderError so the retry layer can classify them.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider identifier ("openai", ...).
	Name() string
}

// Registry maps provider names to embedding providers. A knowledge-base node
// picks its provider at execution time via the node's embeddingProvider
// config field.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

// NewRegistry builds a registry. The first registered provider becomes the
// fallback used when a node does not name one.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		if registry.fallback == "" {
			registry.fallback = provider.Name()
		}
		registry.providers[provider.Name()] = provider
	}
	return registry
}

// Lookup resolves a provider by name. An empty name selects the fallback.
func (registry *Registry) Lookup(name string) (Provider, error) {
	if name == "" {
		name = registry.fallback
	}
	provider, ok := registry.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
	return provider, nil
}
