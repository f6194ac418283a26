package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/genstack/genstack/workflow"
)

// DefaultRunTimeout is the total wall-clock budget for one execution run.
const DefaultRunTimeout = 60 * time.Second

// Executor runs a single node. Input is the fan-in concatenation of the
// node's dependencies' outputs (the raw query for the entry node); the run
// context exposes everything produced so far.
type Executor interface {
	Execute(ctx context.Context, node workflow.Node, input string, runCtx *RunContext) (string, error)
}

// ExecutorMap binds each node type to its executor.
type ExecutorMap map[workflow.NodeType]Executor

// Engine schedules and executes workflow graphs. Nodes run strictly
// sequentially in deterministic topological order: same graph, same query,
// same provider responses means the same event stream.
type Engine struct {
	executors  ExecutorMap
	cache      *workflow.ValidationCache
	logger     *slog.Logger
	runTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRunTimeout overrides the per-run wall-clock budget.
func WithRunTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.runTimeout = timeout }
}

// WithValidationCache reuses validation results across runs of unchanged
// graphs.
func WithValidationCache(cache *workflow.ValidationCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// New creates an engine over the given executors.
func New(executors ExecutorMap, opts ...Option) *Engine {
	e := &Engine{
		executors:  executors,
		logger:     slog.Default(),
		runTimeout: DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the graph to completion and returns the terminal output, the
// full run context, and the run summary. It is the single-shot form of
// ExecuteStream.
func (e *Engine) Execute(ctx context.Context, graph *workflow.Graph, query string) (*Result, error) {
	var result *Result
	var runErr *RunError

	for event := range e.ExecuteStream(ctx, graph, query) {
		switch event.Type {
		case EventRunCompleted:
			result = &Result{Output: event.Output, Context: event.Context, Summary: *event.Summary}
		case EventRunFailed:
			runErr = event.RunErr
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// ExecuteStream runs the graph and yields one event per state change. The
// stream always ends with exactly one EventRunCompleted or EventRunFailed.
// Execution is lazy: nothing runs until the sequence is consumed, and
// stopping consumption stops the run.
func (e *Engine) ExecuteStream(ctx context.Context, graph *workflow.Graph, query string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		summary := Summary{TotalNodes: len(graph.Nodes)}

		validation, err := e.validate(graph)
		if err != nil {
			yield(runFailed(&RunError{Kind: RunKindInvalidGraph, Err: err}, summary))
			return
		}
		if !validation.Valid {
			cause := fmt.Errorf("graph validation failed: %s", strings.Join(validation.Errors, "; "))
			yield(runFailed(&RunError{Kind: RunKindInvalidGraph, Err: cause}, summary))
			return
		}

		order, err := topologicalOrder(graph)
		if err != nil {
			yield(runFailed(&RunError{Kind: RunKindInvalidGraph, Err: err}, summary))
			return
		}

		runCtx := NewRunContext(query)
		ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
		defer cancel()

		started := time.Now()

		// The run's answer is the terminal output node's rendering. Other
		// nodes completing after it, like warned-about dead ends, must not
		// displace it.
		var finalOutput string

		for _, node := range order {
			if !yield(nodeStarted(node)) {
				return
			}

			output, nodeErr := e.runNode(ctx, graph, node, runCtx)
			if nodeErr != nil {
				summary.Errors++
				e.logger.Error("node failed", "node", node.ID, "type", node.Type, "error", nodeErr)
				if !yield(nodeFailed(node, nodeErr)) {
					return
				}
				yield(runFailed(classifyRunError(ctx, nodeErr), summary))
				return
			}

			if err := runCtx.Set(node.ID, output); err != nil {
				summary.Errors++
				yield(runFailed(&RunError{Kind: RunKindNodeFailed, Err: NewNodeError(node.ID, KindInternal, err)}, summary))
				return
			}

			summary.ExecutedNodes++
			if node.Type == workflow.NodeOutput {
				finalOutput = output
			}
			e.logger.Debug("node completed", "node", node.ID, "type", node.Type)
			if !yield(nodeCompleted(node, output)) {
				return
			}
		}

		e.logger.Info("run completed",
			"nodes", summary.ExecutedNodes,
			"duration", time.Since(started),
		)
		yield(runCompleted(finalOutput, runCtx, summary))
	}
}

// validate resolves the graph's validation result, through the cache when one
// is configured.
func (e *Engine) validate(graph *workflow.Graph) (workflow.ValidationResult, error) {
	if e.cache != nil {
		return e.cache.Validate(graph)
	}
	return workflow.Validate(graph), nil
}

// runNode executes one node and wraps any failure into a NodeError.
func (e *Engine) runNode(ctx context.Context, graph *workflow.Graph, node workflow.Node, runCtx *RunContext) (string, *NodeError) {
	executor, ok := e.executors[node.Type]
	if !ok {
		return "", NewNodeError(node.ID, KindInternal, fmt.Errorf("no executor registered for node type %s", node.Type))
	}

	output, err := executor.Execute(ctx, node, gatherInput(graph, node, runCtx), runCtx)
	if err != nil {
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			return "", nodeErr
		}
		return "", NewNodeError(node.ID, KindInternal, err)
	}
	return output, nil
}

// gatherInput assembles a node's input from its dependencies' outputs,
// concatenated with newlines in edge declaration order. The entry node has no
// dependencies and receives the raw query.
func gatherInput(graph *workflow.Graph, node workflow.Node, runCtx *RunContext) string {
	if node.Type == workflow.NodeUserQuery {
		return runCtx.Query()
	}

	var parts []string
	for _, source := range graph.Incoming(node.ID) {
		if output, ok := runCtx.Get(source); ok {
			parts = append(parts, output)
		}
	}
	return strings.Join(parts, "\n")
}

// classifyRunError distinguishes a run that hit its wall-clock budget from an
// ordinary node failure.
func classifyRunError(ctx context.Context, nodeErr *NodeError) *RunError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RunError{Kind: RunKindTimeout, Err: nodeErr}
	case errors.Is(ctx.Err(), context.Canceled):
		return &RunError{Kind: RunKindCanceled, Err: nodeErr}
	default:
		return &RunError{Kind: RunKindNodeFailed, Err: nodeErr}
	}
}

// topologicalOrder returns the graph's nodes in Kahn order. Among ready
// nodes, graph insertion order breaks ties, which makes scheduling fully
// deterministic.
func topologicalOrder(graph *workflow.Graph) ([]workflow.Node, error) {
	inDegree := make(map[string]int, len(graph.Nodes))
	for _, node := range graph.Nodes {
		inDegree[node.ID] = 0
	}
	for _, edge := range graph.Edges {
		inDegree[edge.Target]++
	}

	scheduled := make(map[string]bool, len(graph.Nodes))
	order := make([]workflow.Node, 0, len(graph.Nodes))

	for len(order) < len(graph.Nodes) {
		progressed := false
		for _, node := range graph.Nodes {
			if scheduled[node.ID] || inDegree[node.ID] != 0 {
				continue
			}
			scheduled[node.ID] = true
			order = append(order, node)
			for _, target := range graph.Outgoing(node.ID) {
				inDegree[target]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, errors.New("graph contains a cycle")
		}
	}
	return order, nil
}
