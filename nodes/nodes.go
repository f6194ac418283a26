// Package nodes implements one executor per workflow node type. Executors
// translate typed node configs into provider calls and report failures as
// engine.NodeError values.
package nodes

import (
	"fmt"
	"log/slog"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/providers/ai"
	"github.com/genstack/genstack/providers/embedding"
	"github.com/genstack/genstack/providers/vectorstore"
	"github.com/genstack/genstack/providers/websearch"
	"github.com/genstack/genstack/workflow"
)

// Dependencies bundles the provider backends the executors need. Chat and
// Search are keyed by provider name; DefaultSearch names the search backend
// used when a node's config does not pick one.
type Dependencies struct {
	Chat          map[string]ai.ChatCompletionProvider
	Embeddings    *embedding.Registry
	Store         vectorstore.SimilaritySearch
	Search        map[string]websearch.Provider
	DefaultSearch string
	Logger        *slog.Logger
}

// Registry builds the executor map the engine schedules over.
func Registry(deps Dependencies) engine.ExecutorMap {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return engine.ExecutorMap{
		workflow.NodeUserQuery:     &UserQueryExecutor{},
		workflow.NodeKnowledgeBase: &KnowledgeBaseExecutor{embeddings: deps.Embeddings, store: deps.Store, logger: logger},
		workflow.NodeLLMEngine:     &LLMEngineExecutor{providers: deps.Chat, logger: logger},
		workflow.NodeWebSearch:     &WebSearchExecutor{providers: deps.Search, fallback: deps.DefaultSearch, logger: logger},
		workflow.NodeOutput:        &OutputExecutor{},
	}
}

// configAs asserts a node's config to the executor's expected record. A
// mismatch means the graph decoder and the executor registry disagree, which
// is an internal error, not a user one.
func configAs[T workflow.NodeConfig](node workflow.Node) (T, error) {
	config, ok := node.Config.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("node %s has config type %T, expected %T", node.ID, node.Config, zero)
	}
	return config, nil
}
