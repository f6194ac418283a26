package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDecodesTypedConfig(t *testing.T) {
	raw := `{
		"id": "kb",
		"type": "knowledge_base",
		"config": {"documentIds": ["doc-1", "doc-2"], "topK": 3}
	}`

	var node Node
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	config, ok := node.Config.(KnowledgeBaseConfig)
	require.True(t, ok)
	assert.Equal(t, []string{"doc-1", "doc-2"}, config.DocumentIDs)
	assert.Equal(t, 3, config.TopK)
}

func TestNodeRejectsUnknownType(t *testing.T) {
	raw := `{"id": "x", "type": "image_gen", "config": {}}`

	var node Node
	err := json.Unmarshal([]byte(raw), &node)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")
}

func TestNodeRejectsUnknownConfigKey(t *testing.T) {
	raw := `{"id": "kb", "type": "knowledge_base", "config": {"documentIds": ["d"], "topk": 3}}`

	var node Node
	err := json.Unmarshal([]byte(raw), &node)

	require.Error(t, err)
}

func TestNodeMissingConfigDecodesToZeroRecord(t *testing.T) {
	raw := `{"id": "q", "type": "user_query"}`

	var node Node
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	_, ok := node.Config.(UserQueryConfig)
	assert.True(t, ok)
}

func TestWebSearchEnabledDefaultsTrue(t *testing.T) {
	raw := `{"id": "ws", "type": "web_search", "config": {}}`

	var node Node
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	config, ok := node.Config.(WebSearchConfig)
	require.True(t, ok)
	assert.True(t, config.Enabled)
}

func TestNodeRoundTrip(t *testing.T) {
	node := Node{
		ID:   "gen",
		Type: NodeLLMEngine,
		Config: LLMEngineConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
	}

	encoded, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, node, decoded)
}

func TestIncomingFollowsEdgeDeclarationOrder(t *testing.T) {
	graph := &Graph{
		Nodes: []Node{
			{ID: "q", Type: NodeUserQuery, Config: UserQueryConfig{}},
			{ID: "kb", Type: NodeKnowledgeBase, Config: KnowledgeBaseConfig{DocumentIDs: []string{"d"}}},
			{ID: "ws", Type: NodeWebSearch, Config: WebSearchConfig{Enabled: true}},
			{ID: "gen", Type: NodeLLMEngine, Config: LLMEngineConfig{Provider: "openai", Model: "gpt-4o-mini"}},
		},
		Edges: []Edge{
			{Source: "ws", Target: "gen"},
			{Source: "kb", Target: "gen"},
			{Source: "q", Target: "gen"},
		},
	}

	assert.Equal(t, []string{"ws", "kb", "q"}, graph.Incoming("gen"))
}

func TestEffectiveDefaults(t *testing.T) {
	assert.Equal(t, DefaultTopK, KnowledgeBaseConfig{}.EffectiveTopK())
	assert.Equal(t, 7, KnowledgeBaseConfig{TopK: 7}.EffectiveTopK())
	assert.Equal(t, FormatText, OutputConfig{}.EffectiveFormat())
	assert.Equal(t, FormatJSON, OutputConfig{Format: FormatJSON}.EffectiveFormat())
}
