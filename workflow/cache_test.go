package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashIsStable(t *testing.T) {
	first, err := ContentHash(linearGraph())
	require.NoError(t, err)
	second, err := ContentHash(linearGraph())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestContentHashChangesWithEdgeOrder(t *testing.T) {
	graph := linearGraph()
	original, err := ContentHash(graph)
	require.NoError(t, err)

	graph.Edges[0], graph.Edges[1] = graph.Edges[1], graph.Edges[0]
	reordered, err := ContentHash(graph)
	require.NoError(t, err)

	assert.NotEqual(t, original, reordered)
}

func TestValidationCacheReturnsSameResult(t *testing.T) {
	cache := NewValidationCache()
	graph := linearGraph()

	first, err := cache.Validate(graph)
	require.NoError(t, err)
	second, err := cache.Validate(graph)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Valid)
}

func TestValidationCacheDistinguishesMutatedGraph(t *testing.T) {
	cache := NewValidationCache()
	graph := linearGraph()

	valid, err := cache.Validate(graph)
	require.NoError(t, err)
	require.True(t, valid.Valid)

	graph.Edges = append(graph.Edges, Edge{Source: "out", Target: "q"})
	broken, err := cache.Validate(graph)
	require.NoError(t, err)

	assert.False(t, broken.Valid)
}
