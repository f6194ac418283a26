package nodes

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/providers/embedding"
	"github.com/genstack/genstack/providers/retry"
	"github.com/genstack/genstack/providers/vectorstore"
	"github.com/genstack/genstack/workflow"
)

// KnowledgeBaseExecutor retrieves the passages most similar to the user's
// query from the configured documents. Retrieved passages are staged in the
// run context so the full grounding of an answer stays inspectable.
type KnowledgeBaseExecutor struct {
	embeddings *embedding.Registry
	store      vectorstore.SimilaritySearch
	logger     *slog.Logger
}

func (e *KnowledgeBaseExecutor) Execute(ctx context.Context, node workflow.Node, _ string, runCtx *engine.RunContext) (string, error) {
	config, err := configAs[workflow.KnowledgeBaseConfig](node)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindInternal, err)
	}

	embedder, err := e.embeddings.Lookup(config.EmbeddingProvider)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindRetrieval, err)
	}

	topK := config.EffectiveTopK()
	query := runCtx.Query()

	// One filtered search per document keeps the store filter a simple
	// equality match; results are merged by score afterwards.
	var matches []vectorstore.Match
	for _, documentID := range config.DocumentIDs {
		filter := map[string]any{"document_id": documentID}
		found, err := retry.Do(ctx, retry.Config{}, func(ctx context.Context) ([]vectorstore.Match, error) {
			return vectorstore.SearchByText(ctx, e.store, embedder, query, topK, filter)
		})
		if err != nil {
			return "", engine.NewNodeError(node.ID, engine.KindRetrieval, err)
		}
		matches = append(matches, found...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	passages := make([]string, 0, len(matches))
	for _, match := range matches {
		passages = append(passages, match.Text)
	}
	runCtx.SetRetrievedDocuments(passages)

	e.logger.Debug("knowledge base retrieval",
		"node", node.ID,
		"documents", len(config.DocumentIDs),
		"passages", len(passages),
	)
	return strings.Join(passages, "\n\n"), nil
}
