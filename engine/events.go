package engine

import (
	"time"

	"github.com/genstack/genstack/workflow"
)

// EventType identifies what happened during an execution run.
type EventType string

const (
	// EventNodeStarted signals that a node has begun executing.
	EventNodeStarted EventType = "node_started"

	// EventNodeCompleted signals that a node finished and its output was
	// recorded in the run context. The Output field is populated.
	EventNodeCompleted EventType = "node_completed"

	// EventNodeFailed signals that a node returned an error. The run aborts;
	// no further node events follow except the closing EventRunFailed.
	EventNodeFailed EventType = "node_failed"

	// EventRunCompleted closes a successful run. Output carries the terminal
	// node's result, Context the full run context, Summary the run counters.
	EventRunCompleted EventType = "run_completed"

	// EventRunFailed closes a failed run. Summary is still populated so
	// callers can see how far the run got.
	EventRunFailed EventType = "run_failed"
)

// Summary counts a run's work. ExecutedNodes counts nodes that completed
// successfully, so a failed run always has ExecutedNodes < TotalNodes.
type Summary struct {
	TotalNodes    int `json:"total_nodes"`
	ExecutedNodes int `json:"executed_nodes"`
	Errors        int `json:"errors"`
}

// Event is one entry in an execution run's event stream.
type Event struct {
	Type      EventType         `json:"type"`
	NodeID    string            `json:"node_id,omitempty"`
	NodeType  workflow.NodeType `json:"node_type,omitempty"`
	Output    string            `json:"output,omitempty"`
	Error     string            `json:"error,omitempty"`
	Context   []ContextEntry    `json:"context,omitempty"`
	Summary   *Summary          `json:"summary,omitempty"`
	Timestamp time.Time         `json:"timestamp"`

	// NodeErr and RunErr carry the typed failure for programmatic callers.
	// The wire form uses Error instead.
	NodeErr *NodeError `json:"-"`
	RunErr  *RunError  `json:"-"`
}

// Result is the outcome of a single-shot execution.
type Result struct {
	Output  string         `json:"output"`
	Context []ContextEntry `json:"context"`
	Summary Summary        `json:"summary"`
}

func nodeStarted(node workflow.Node) Event {
	return Event{Type: EventNodeStarted, NodeID: node.ID, NodeType: node.Type, Timestamp: time.Now()}
}

func nodeCompleted(node workflow.Node, output string) Event {
	return Event{Type: EventNodeCompleted, NodeID: node.ID, NodeType: node.Type, Output: output, Timestamp: time.Now()}
}

func nodeFailed(node workflow.Node, nodeErr *NodeError) Event {
	return Event{
		Type:      EventNodeFailed,
		NodeID:    node.ID,
		NodeType:  node.Type,
		Error:     nodeErr.Error(),
		NodeErr:   nodeErr,
		Timestamp: time.Now(),
	}
}

func runCompleted(output string, runCtx *RunContext, summary Summary) Event {
	return Event{
		Type:      EventRunCompleted,
		Output:    output,
		Context:   runCtx.Snapshot(),
		Summary:   &summary,
		Timestamp: time.Now(),
	}
}

func runFailed(runErr *RunError, summary Summary) Event {
	return Event{
		Type:      EventRunFailed,
		Error:     runErr.Error(),
		RunErr:    runErr,
		Summary:   &summary,
		Timestamp: time.Now(),
	}
}
