package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/providers/retry"
	"github.com/genstack/genstack/providers/websearch"
	"github.com/genstack/genstack/workflow"
)

// WebSearchExecutor runs a web-search node against the configured backend and
// summarizes the hits for downstream prompts. A disabled node produces an
// empty output without touching the network.
type WebSearchExecutor struct {
	providers map[string]websearch.Provider
	fallback  string
	logger    *slog.Logger
}

func (e *WebSearchExecutor) Execute(ctx context.Context, node workflow.Node, _ string, runCtx *engine.RunContext) (string, error) {
	config, err := configAs[workflow.WebSearchConfig](node)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindInternal, err)
	}

	if !config.Enabled {
		return "", nil
	}

	name := strings.ToLower(config.Provider)
	if name == "" {
		name = e.fallback
	}
	provider, ok := e.providers[name]
	if !ok {
		return "", engine.NewNodeError(node.ID, engine.KindSearch, fmt.Errorf("no search provider configured for %q", name))
	}

	query := runCtx.Query()
	results, err := retry.Do(ctx, retry.Config{}, func(ctx context.Context) ([]websearch.Result, error) {
		return provider.Search(ctx, query)
	})
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindSearch, err)
	}

	e.logger.Debug("web search finished", "node", node.ID, "provider", provider.Name(), "results", len(results))
	return websearch.Summarize(query, results), nil
}
