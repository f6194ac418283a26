package workflow

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationResult is the outcome of structural validation. Warnings do not
// block execution; errors do.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// structValidator checks the per-type config records' validate tags.
// validator.Validate is safe for concurrent use and caches struct metadata.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a graph for structural correctness. It is pure: no
// provider calls, no side effects. Checks run in a fixed order and
// short-circuit when a structural failure makes later checks meaningless
// (a broken edge set has no well-defined cycle or reachability answer).
func Validate(graph *Graph) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	// Entry and terminal nodes.
	entryCount, terminalCount := 0, 0
	nodeIDs := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		nodeIDs[node.ID] = true
		switch node.Type {
		case NodeUserQuery:
			entryCount++
		case NodeOutput:
			terminalCount++
		}
	}

	if entryCount != 1 {
		result.Errors = append(result.Errors, "missing or duplicate entry node")
	}
	if terminalCount == 0 {
		result.Errors = append(result.Errors, "missing terminal node")
	}

	// Edge endpoints must reference existing nodes.
	for _, edge := range graph.Edges {
		if !nodeIDs[edge.Source] {
			result.Errors = append(result.Errors, fmt.Sprintf("edge references unknown node %s", edge.Source))
		}
		if !nodeIDs[edge.Target] {
			result.Errors = append(result.Errors, fmt.Sprintf("edge references unknown node %s", edge.Target))
		}
	}

	if len(result.Errors) > 0 {
		return result
	}

	// Cycle detection. Reachability is meaningless on a cyclic graph.
	if cycleNode, hasCycle := findCycle(graph); hasCycle {
		result.Errors = append(result.Errors, fmt.Sprintf("cycle detected involving node %s", cycleNode))
		return result
	}

	// Dead ends: every node except Output needs at least one outgoing edge.
	for _, node := range graph.Nodes {
		if node.Type != NodeOutput && len(graph.Outgoing(node.ID)) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("dead-end node %s", node.ID))
		}
	}

	// Reachability from the entry node via forward edges.
	entry, _ := graph.EntryNode()
	reachable := reachableFrom(graph, entry.ID)
	for _, node := range graph.Nodes {
		if !reachable[node.ID] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unreachable node %s", node.ID))
		}
	}

	// Per-type config completeness.
	for _, node := range graph.Nodes {
		result.Errors = append(result.Errors, configErrors(node)...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// visitColor is the three-color state used by the DFS cycle check.
type visitColor uint8

const (
	colorWhite visitColor = iota // unvisited
	colorGray                    // on the current DFS path
	colorBlack                   // fully explored
)

// findCycle runs a three-color DFS over every node and reports the first
// node found on a back edge. Iteration follows node insertion order so the
// reported node is deterministic.
func findCycle(graph *Graph) (string, bool) {
	colors := make(map[string]visitColor, len(graph.Nodes))

	var visit func(nodeID string) (string, bool)
	visit = func(nodeID string) (string, bool) {
		colors[nodeID] = colorGray
		for _, target := range graph.Outgoing(nodeID) {
			switch colors[target] {
			case colorGray:
				return target, true
			case colorWhite:
				if cycleNode, found := visit(target); found {
					return cycleNode, true
				}
			}
		}
		colors[nodeID] = colorBlack
		return "", false
	}

	for _, node := range graph.Nodes {
		if colors[node.ID] == colorWhite {
			if cycleNode, found := visit(node.ID); found {
				return cycleNode, true
			}
		}
	}
	return "", false
}

// reachableFrom returns the set of node IDs reachable from start via forward
// edges, including start itself.
func reachableFrom(graph *Graph, start string) map[string]bool {
	reachable := map[string]bool{start: true}
	frontier := []string{start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, target := range graph.Outgoing(current) {
			if !reachable[target] {
				reachable[target] = true
				frontier = append(frontier, target)
			}
		}
	}
	return reachable
}

// configErrors runs the validate tags of the node's typed config record and
// renders each violation as a missing/invalid field error.
func configErrors(node Node) []string {
	err := structValidator.Struct(node.Config)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{fmt.Sprintf("node %s has invalid config: %v", node.ID, err)}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := jsonFieldName(fieldError.StructField())
		if fieldError.Tag() == "required" || fieldError.Tag() == "min" {
			messages = append(messages, fmt.Sprintf("node %s missing required field %s", node.ID, field))
		} else {
			messages = append(messages, fmt.Sprintf("node %s has invalid value for field %s", node.ID, field))
		}
	}
	return messages
}

// jsonFieldName maps a struct field name to its json tag so validation
// errors speak the wire format's language.
func jsonFieldName(structField string) string {
	switch structField {
	case "DocumentIDs":
		return "documentIds"
	case "EmbeddingProvider":
		return "embeddingProvider"
	case "SystemPrompt":
		return "systemPrompt"
	case "MaxTokens":
		return "maxTokens"
	case "APIKey":
		return "apiKey"
	case "TopK":
		return "topK"
	default:
		return strings.ToLower(structField[:1]) + structField[1:]
	}
}
