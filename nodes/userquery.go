package nodes

import (
	"context"
	"fmt"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/workflow"
)

// UserQueryExecutor handles the entry node: it passes the raw user message
// through, optionally prefixed with a configured label.
type UserQueryExecutor struct{}

func (e *UserQueryExecutor) Execute(_ context.Context, node workflow.Node, input string, _ *engine.RunContext) (string, error) {
	config, err := configAs[workflow.UserQueryConfig](node)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindInternal, err)
	}

	if config.Label != "" {
		return fmt.Sprintf("%s: %s", config.Label, input), nil
	}
	return input, nil
}
