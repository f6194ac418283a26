package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultTopK is the passage count a knowledge-base node retrieves when its
// config does not set one.
const DefaultTopK = 5

// OutputFormat enumerates the rendering modes of an output node.
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
)

// NodeConfig is the closed set of typed per-node configuration records.
// Exactly one concrete type exists per NodeType.
type NodeConfig interface {
	nodeType() NodeType
}

// UserQueryConfig configures the entry node.
type UserQueryConfig struct {
	// Label optionally prefixes the raw user message, e.g. "Question".
	Label string `json:"label,omitempty"`
}

// KnowledgeBaseConfig configures a retrieval node.
type KnowledgeBaseConfig struct {
	// DocumentIDs reference already-uploaded documents; at least one is
	// required for the node to be executable.
	DocumentIDs []string `json:"documentIds" validate:"required,min=1"`

	// TopK is the number of passages to retrieve. Zero means DefaultTopK.
	TopK int `json:"topK,omitempty" validate:"gte=0"`

	// EmbeddingProvider selects the embedding backend; empty selects the
	// registry fallback.
	EmbeddingProvider string `json:"embeddingProvider,omitempty"`
}

// EffectiveTopK resolves the configured TopK against the default.
func (c KnowledgeBaseConfig) EffectiveTopK() int {
	if c.TopK <= 0 {
		return DefaultTopK
	}
	return c.TopK
}

// LLMEngineConfig configures an inference node. Prompt may contain {context}
// and {query} placeholders, substituted at execution time.
type LLMEngineConfig struct {
	Provider     string  `json:"provider" validate:"required"`
	Model        string  `json:"model" validate:"required"`
	Prompt       string  `json:"prompt,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	Temperature  float32 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens    int     `json:"maxTokens,omitempty" validate:"gte=0"`
	APIKey       string  `json:"apiKey,omitempty"`
}

// WebSearchConfig configures a web-search node. A disabled node
// short-circuits to an empty result without calling the adapter.
type WebSearchConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
}

// OutputConfig configures the terminal node.
type OutputConfig struct {
	// Format is one of text, json, markdown. Empty means text.
	Format OutputFormat `json:"format,omitempty" validate:"omitempty,oneof=text json markdown"`
}

// EffectiveFormat resolves the configured format against the default.
func (c OutputConfig) EffectiveFormat() OutputFormat {
	if c.Format == "" {
		return FormatText
	}
	return c.Format
}

func (UserQueryConfig) nodeType() NodeType     { return NodeUserQuery }
func (KnowledgeBaseConfig) nodeType() NodeType { return NodeKnowledgeBase }
func (LLMEngineConfig) nodeType() NodeType     { return NodeLLMEngine }
func (WebSearchConfig) nodeType() NodeType     { return NodeWebSearch }
func (OutputConfig) nodeType() NodeType        { return NodeOutput }

// decodeConfig decodes raw JSON into the typed record for the node type.
// A missing config decodes to the type's zero record; completeness is
// enforced by Validate, not here, so the validator can report every problem
// at once.
func decodeConfig(nodeType NodeType, raw json.RawMessage) (NodeConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch nodeType {
	case NodeUserQuery:
		var config UserQueryConfig
		return config, decodeStrict(raw, &config)
	case NodeKnowledgeBase:
		var config KnowledgeBaseConfig
		return config, decodeStrict(raw, &config)
	case NodeLLMEngine:
		var config LLMEngineConfig
		return config, decodeStrict(raw, &config)
	case NodeWebSearch:
		config := WebSearchConfig{Enabled: true}
		return config, decodeStrict(raw, &config)
	case NodeOutput:
		var config OutputConfig
		return config, decodeStrict(raw, &config)
	}
	return nil, fmt.Errorf("unknown node type %q", nodeType)
}

// decodeStrict rejects config keys that do not belong to the node type, so a
// typo like "topk" fails at deserialization instead of silently defaulting.
func decodeStrict(raw json.RawMessage, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}
