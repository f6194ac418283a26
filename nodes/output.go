package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/workflow"
)

// OutputExecutor renders the terminal node's result in the configured format.
type OutputExecutor struct{}

func (e *OutputExecutor) Execute(_ context.Context, node workflow.Node, input string, _ *engine.RunContext) (string, error) {
	config, err := configAs[workflow.OutputConfig](node)
	if err != nil {
		return "", engine.NewNodeError(node.ID, engine.KindInternal, err)
	}

	switch config.EffectiveFormat() {
	case workflow.FormatJSON:
		rendered, err := renderJSON(input)
		if err != nil {
			return "", engine.NewNodeError(node.ID, engine.KindFormat, err)
		}
		return rendered, nil
	case workflow.FormatMarkdown:
		return strings.TrimRight(input, "\n") + "\n", nil
	default:
		return input, nil
	}
}

// renderJSON passes valid JSON through untouched and repairs the usual LLM
// artifacts (code fences, trailing commas, single quotes) otherwise.
func renderJSON(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("output is empty, nothing to render as JSON")
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return "", fmt.Errorf("output is not valid JSON and could not be repaired: %w", err)
	}
	return repaired, nil
}
