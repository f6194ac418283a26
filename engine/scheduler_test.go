package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genstack/genstack/workflow"
)

// stubExecutor delegates to a function, defaulting to echoing the node id
// with its input.
type stubExecutor struct {
	fn func(ctx context.Context, node workflow.Node, input string, runCtx *RunContext) (string, error)
}

func (s *stubExecutor) Execute(ctx context.Context, node workflow.Node, input string, runCtx *RunContext) (string, error) {
	if s.fn != nil {
		return s.fn(ctx, node, input, runCtx)
	}
	return fmt.Sprintf("%s(%s)", node.ID, input), nil
}

func echoExecutors() ExecutorMap {
	echo := &stubExecutor{}
	return ExecutorMap{
		workflow.NodeUserQuery:     echo,
		workflow.NodeKnowledgeBase: echo,
		workflow.NodeLLMEngine:     echo,
		workflow.NodeWebSearch:     echo,
		workflow.NodeOutput:        echo,
	}
}

func linearGraph() *workflow.Graph {
	return &workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
			{ID: "gen", Type: workflow.NodeLLMEngine, Config: workflow.LLMEngineConfig{Provider: "openai", Model: "gpt-4o-mini"}},
			{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
		},
		Edges: []workflow.Edge{
			{Source: "q", Target: "gen"},
			{Source: "gen", Target: "out"},
		},
	}
}

func collectEvents(t *testing.T, eng *Engine, graph *workflow.Graph, query string) []Event {
	t.Helper()
	var events []Event
	for event := range eng.ExecuteStream(context.Background(), graph, query) {
		events = append(events, event)
	}
	return events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	return types
}

func TestExecuteStreamLinearRun(t *testing.T) {
	eng := New(echoExecutors())

	events := collectEvents(t, eng, linearGraph(), "hi")

	assert.Equal(t, []EventType{
		EventNodeStarted, EventNodeCompleted,
		EventNodeStarted, EventNodeCompleted,
		EventNodeStarted, EventNodeCompleted,
		EventRunCompleted,
	}, eventTypes(events))

	final := events[len(events)-1]
	assert.Equal(t, "out(gen(q(hi)))", final.Output)
	require.NotNil(t, final.Summary)
	assert.Equal(t, Summary{TotalNodes: 3, ExecutedNodes: 3, Errors: 0}, *final.Summary)
	assert.Len(t, final.Context, 3)
}

func TestExecuteStreamIsDeterministic(t *testing.T) {
	eng := New(echoExecutors())

	first := collectEvents(t, eng, linearGraph(), "hi")
	second := collectEvents(t, eng, linearGraph(), "hi")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].NodeID, second[i].NodeID)
		assert.Equal(t, first[i].Output, second[i].Output)
	}
}

func TestSchedulerBreaksTiesByInsertionOrder(t *testing.T) {
	graph := &workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
			{ID: "b", Type: workflow.NodeWebSearch, Config: workflow.WebSearchConfig{Enabled: true}},
			{ID: "a", Type: workflow.NodeKnowledgeBase, Config: workflow.KnowledgeBaseConfig{DocumentIDs: []string{"d"}}},
			{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
		},
		Edges: []workflow.Edge{
			{Source: "q", Target: "b"},
			{Source: "q", Target: "a"},
			{Source: "a", Target: "out"},
			{Source: "b", Target: "out"},
		},
	}

	order, err := topologicalOrder(graph)
	require.NoError(t, err)

	ids := make([]string, len(order))
	for i, node := range order {
		ids[i] = node.ID
	}
	// b precedes a because it is declared first, regardless of edge order.
	assert.Equal(t, []string{"q", "b", "a", "out"}, ids)
}

func TestFanInFollowsEdgeDeclarationOrder(t *testing.T) {
	graph := &workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
			{ID: "kb", Type: workflow.NodeKnowledgeBase, Config: workflow.KnowledgeBaseConfig{DocumentIDs: []string{"d"}}},
			{ID: "ws", Type: workflow.NodeWebSearch, Config: workflow.WebSearchConfig{Enabled: true}},
			{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
		},
		Edges: []workflow.Edge{
			{Source: "q", Target: "kb"},
			{Source: "q", Target: "ws"},
			{Source: "ws", Target: "out"},
			{Source: "kb", Target: "out"},
		},
	}

	var outInput string
	executors := echoExecutors()
	executors[workflow.NodeOutput] = &stubExecutor{fn: func(_ context.Context, _ workflow.Node, input string, _ *RunContext) (string, error) {
		outInput = input
		return input, nil
	}}

	eng := New(executors)
	_, err := eng.Execute(context.Background(), graph, "hi")
	require.NoError(t, err)

	// ws output first: the ws->out edge is declared before kb->out.
	assert.Equal(t, "ws(q(hi))\nkb(q(hi))", outInput)
}

func TestFinalOutputComesFromOutputNode(t *testing.T) {
	// A dead-end node is only a warning, so this graph is valid. The stray
	// node schedules after the output node, but must not displace its result.
	graph := &workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
			{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
			{ID: "stray", Type: workflow.NodeWebSearch, Config: workflow.WebSearchConfig{Enabled: true}},
		},
		Edges: []workflow.Edge{
			{Source: "q", Target: "out"},
			{Source: "q", Target: "stray"},
		},
	}

	validation := workflow.Validate(graph)
	require.True(t, validation.Valid)
	assert.Contains(t, validation.Warnings, "dead-end node stray")

	eng := New(echoExecutors())
	result, err := eng.Execute(context.Background(), graph, "hi")
	require.NoError(t, err)

	assert.Equal(t, "out(q(hi))", result.Output)
	assert.Equal(t, 3, result.Summary.ExecutedNodes)
}

func TestNodeFailureAbortsRun(t *testing.T) {
	executors := echoExecutors()
	executors[workflow.NodeLLMEngine] = &stubExecutor{fn: func(_ context.Context, node workflow.Node, _ string, _ *RunContext) (string, error) {
		return "", NewNodeError(node.ID, KindLLMProvider, errors.New("boom"))
	}}

	eng := New(executors)
	events := collectEvents(t, eng, linearGraph(), "hi")

	assert.Equal(t, []EventType{
		EventNodeStarted, EventNodeCompleted,
		EventNodeStarted, EventNodeFailed,
		EventRunFailed,
	}, eventTypes(events))

	failure := events[len(events)-1]
	require.NotNil(t, failure.RunErr)
	assert.Equal(t, RunKindNodeFailed, failure.RunErr.Kind)
	assert.Equal(t, Summary{TotalNodes: 3, ExecutedNodes: 1, Errors: 1}, *failure.Summary)

	var nodeErr *NodeError
	require.ErrorAs(t, failure.RunErr, &nodeErr)
	assert.Equal(t, "gen", nodeErr.NodeID)
	assert.Equal(t, KindLLMProvider, nodeErr.Kind)
}

func TestRunTimeoutAbortsWithTimeoutKind(t *testing.T) {
	executors := echoExecutors()
	executors[workflow.NodeLLMEngine] = &stubExecutor{fn: func(ctx context.Context, node workflow.Node, _ string, _ *RunContext) (string, error) {
		select {
		case <-ctx.Done():
			return "", NewNodeError(node.ID, KindLLMProvider, ctx.Err())
		case <-time.After(time.Second):
			return "late", nil
		}
	}}

	eng := New(executors, WithRunTimeout(20*time.Millisecond))
	_, err := eng.Execute(context.Background(), linearGraph(), "hi")

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, RunKindTimeout, runErr.Kind)
}

func TestInvalidGraphFailsBeforeExecution(t *testing.T) {
	graph := linearGraph()
	graph.Nodes = graph.Nodes[:2] // drop the output node
	graph.Edges = graph.Edges[:1]

	eng := New(echoExecutors())
	events := collectEvents(t, eng, graph, "hi")

	require.Len(t, events, 1)
	require.NotNil(t, events[0].RunErr)
	assert.Equal(t, RunKindInvalidGraph, events[0].RunErr.Kind)
}

func TestMissingExecutorIsInternalFailure(t *testing.T) {
	eng := New(ExecutorMap{})
	_, err := eng.Execute(context.Background(), linearGraph(), "hi")

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, KindInternal, nodeErr.Kind)
}

func TestExecuteUsesValidationCache(t *testing.T) {
	cache := workflow.NewValidationCache()
	eng := New(echoExecutors(), WithValidationCache(cache))

	result, err := eng.Execute(context.Background(), linearGraph(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "out(gen(q(hi)))", result.Output)
}
