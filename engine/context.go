// Package engine executes validated workflow graphs: deterministic
// topological scheduling, an append-only run context, and an event stream
// describing the run's progress.
package engine

import (
	"fmt"
	"sync"
)

// ContextEntry is one node's recorded output, in execution order.
type ContextEntry struct {
	NodeID string `json:"node_id"`
	Output string `json:"output"`
}

// RunContext accumulates node outputs over one execution run. Entries are
// append-only: a node's output is written exactly once and never mutated, so
// downstream nodes always observe the value their dependency produced.
type RunContext struct {
	mu        sync.RWMutex
	query     string
	order     []string
	outputs   map[string]string
	retrieved []string
}

// NewRunContext creates a run context seeded with the user's query.
func NewRunContext(query string) *RunContext {
	return &RunContext{
		query:   query,
		outputs: make(map[string]string),
	}
}

// Query returns the raw user input that started the run.
func (rc *RunContext) Query() string { return rc.query }

// Set records a node's output. Writing the same node twice is a programming
// error and is rejected.
func (rc *RunContext) Set(nodeID, output string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.outputs[nodeID]; exists {
		return fmt.Errorf("output for node %s already recorded", nodeID)
	}
	rc.outputs[nodeID] = output
	rc.order = append(rc.order, nodeID)
	return nil
}

// Get returns the recorded output of a node.
func (rc *RunContext) Get(nodeID string) (string, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	output, ok := rc.outputs[nodeID]
	return output, ok
}

// SetRetrievedDocuments stages the passages a knowledge-base node retrieved,
// so later inspection of the run can show what grounded the answer.
func (rc *RunContext) SetRetrievedDocuments(passages []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.retrieved = append(rc.retrieved, passages...)
}

// RetrievedDocuments returns the staged passages in retrieval order.
func (rc *RunContext) RetrievedDocuments() []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	out := make([]string, len(rc.retrieved))
	copy(out, rc.retrieved)
	return out
}

// Snapshot returns the recorded outputs in execution order.
func (rc *RunContext) Snapshot() []ContextEntry {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	entries := make([]ContextEntry, 0, len(rc.order))
	for _, nodeID := range rc.order {
		entries = append(entries, ContextEntry{NodeID: nodeID, Output: rc.outputs[nodeID]})
	}
	return entries
}
