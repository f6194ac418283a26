package engine

import (
	"errors"
	"fmt"

	"github.com/genstack/genstack/providers/ai"
)

// NodeErrorKind classifies per-node execution failures by the node capability
// that failed.
type NodeErrorKind string

const (
	// KindRetrieval covers knowledge-base similarity search failures.
	KindRetrieval NodeErrorKind = "retrieval"

	// KindSearch covers web-search adapter failures.
	KindSearch NodeErrorKind = "search"

	// KindLLMProvider covers chat-completion failures after retries exhaust.
	KindLLMProvider NodeErrorKind = "llm_provider"

	// KindFormat covers output rendering failures, e.g. invalid JSON.
	KindFormat NodeErrorKind = "format"

	// KindInternal covers engine-side failures such as a missing executor.
	KindInternal NodeErrorKind = "internal"
)

// NodeError reports the failure of a single node. It always aborts the run:
// downstream nodes never see a missing dependency silently defaulted.
type NodeError struct {
	NodeID string
	Kind   NodeErrorKind
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s %s error: %v", e.NodeID, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// NewNodeError wraps a cause into a NodeError.
func NewNodeError(nodeID string, kind NodeErrorKind, cause error) *NodeError {
	return &NodeError{NodeID: nodeID, Kind: kind, Err: cause}
}

// RunErrorKind classifies whole-run failures.
type RunErrorKind string

const (
	// RunKindNodeFailed marks a run aborted by a failed node.
	RunKindNodeFailed RunErrorKind = "node_failed"

	// RunKindTimeout marks a run that exceeded its total time budget.
	RunKindTimeout RunErrorKind = "timeout"

	// RunKindCanceled marks a run canceled by its caller.
	RunKindCanceled RunErrorKind = "canceled"

	// RunKindInvalidGraph marks a run attempted against a graph that failed
	// validation.
	RunKindInvalidGraph RunErrorKind = "invalid_graph"
)

// RunError reports the failure of an execution run.
type RunError struct {
	Kind RunErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed (%s): %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Message renders a human-readable banner naming the failing step, suitable
// for the chat UI.
func (e *RunError) Message() string {
	var nodeErr *NodeError
	if errors.As(e.Err, &nodeErr) {
		step := stepName(nodeErr.Kind)
		if kind, ok := ai.ErrorKind(nodeErr.Err); ok {
			return fmt.Sprintf("%s failed: provider %s", step, kindPhrase(kind))
		}
		return fmt.Sprintf("%s failed: %v", step, nodeErr.Err)
	}
	if e.Kind == RunKindTimeout {
		return "Workflow run timed out"
	}
	return fmt.Sprintf("Workflow run failed: %v", e.Err)
}

func stepName(kind NodeErrorKind) string {
	switch kind {
	case KindRetrieval:
		return "Knowledge Base retrieval"
	case KindSearch:
		return "Web search"
	case KindLLMProvider:
		return "LLM generation"
	case KindFormat:
		return "Output formatting"
	default:
		return "Workflow step"
	}
}

func kindPhrase(kind ai.ProviderErrorKind) string {
	switch kind {
	case ai.KindAuth:
		return "authentication error"
	case ai.KindRateLimited:
		return "rate limited"
	case ai.KindTimeout:
		return "timeout"
	default:
		return "returned an invalid response"
	}
}
