// Package workflow defines the node/edge graph model, its typed per-node
// configuration records, and structural validation.
package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NodeType enumerates the closed set of node kinds a workflow may contain.
type NodeType string

const (
	NodeUserQuery     NodeType = "user_query"
	NodeKnowledgeBase NodeType = "knowledge_base"
	NodeLLMEngine     NodeType = "llm_engine"
	NodeWebSearch     NodeType = "web_search"
	NodeOutput        NodeType = "output"
)

// Valid reports whether the node type is one of the known kinds.
func (t NodeType) Valid() bool {
	switch t {
	case NodeUserQuery, NodeKnowledgeBase, NodeLLMEngine, NodeWebSearch, NodeOutput:
		return true
	}
	return false
}

// Node is one unit of work in a workflow graph. Config holds the typed
// configuration record matching the node's type; it is immutable once an
// execution run starts.
type Node struct {
	ID     string     `json:"id"`
	Type   NodeType   `json:"type"`
	Config NodeConfig `json:"config"`
}

// Edge declares a directed data dependency: the target consumes the source's
// output. Edge order in the graph definition is the source of truth for
// fan-in concatenation order.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a complete workflow definition. Node order preserves the graph
// definition's insertion order, which breaks scheduling ties
// deterministically.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Workflow is a stored graph with identity and bookkeeping fields.
type Workflow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Graph       Graph     `json:"graph"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// nodeByID returns the node with the given ID, if present.
func (g *Graph) nodeByID(id string) (Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// EntryNode returns the unique user-query node. Callers must validate the
// graph first; on an invalid graph the result is the first match or zero.
func (g *Graph) EntryNode() (Node, bool) {
	for _, node := range g.Nodes {
		if node.Type == NodeUserQuery {
			return node, true
		}
	}
	return Node{}, false
}

// Incoming returns the sources of the node's incoming edges, in edge
// declaration order.
func (g *Graph) Incoming(nodeID string) []string {
	var sources []string
	for _, edge := range g.Edges {
		if edge.Target == nodeID {
			sources = append(sources, edge.Source)
		}
	}
	return sources
}

// Outgoing returns the targets of the node's outgoing edges, in edge
// declaration order.
func (g *Graph) Outgoing(nodeID string) []string {
	var targets []string
	for _, edge := range g.Edges {
		if edge.Source == nodeID {
			targets = append(targets, edge.Target)
		}
	}
	return targets
}

// nodeEnvelope is the wire form of a Node; config decoding is deferred until
// the type tag is known.
type nodeEnvelope struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Config json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes a node with its type-specific configuration record.
// Unknown node types are rejected at decode time.
func (n *Node) UnmarshalJSON(data []byte) error {
	var envelope nodeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	if !envelope.Type.Valid() {
		return fmt.Errorf("unknown node type %q", envelope.Type)
	}

	config, err := decodeConfig(envelope.Type, envelope.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", envelope.ID, err)
	}

	n.ID = envelope.ID
	n.Type = envelope.Type
	n.Config = config
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (n Node) MarshalJSON() ([]byte, error) {
	config, err := json.Marshal(n.Config)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeEnvelope{ID: n.ID, Type: n.Type, Config: config})
}
