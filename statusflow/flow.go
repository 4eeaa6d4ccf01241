// Package statusflow is the state machine over board status slugs: transition
// legality from a per-task-type graph and completion constraints checked when
// a task tries to enter a completion-like status.
package statusflow

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mankostas/asbuild-sub000/constants"
)

// Graph is a direct-edge adjacency map over status slugs. Reachability is
// never transitive.
type Graph struct {
	edges map[string][]string
}

// NewGraph normalizes a raw status-flow document into a Graph. Two edge
// shapes are accepted and canonicalized up front: ["from","to"] pairs and
// [{"slug":"from"},{"slug":"to"}] object pairs. A nil or empty document
// yields the default flow.
func NewGraph(raw []byte) (*Graph, error) {
	if len(raw) == 0 {
		return DefaultGraph(), nil
	}
	var doc []json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("status flow: %w", err)
	}
	if len(doc) == 0 {
		return DefaultGraph(), nil
	}
	edges := map[string][]string{}
	for i, rawEdge := range doc {
		from, to, err := normalizeEdge(rawEdge)
		if err != nil {
			return nil, fmt.Errorf("status flow edge %d: %w", i, err)
		}
		edges[from] = append(edges[from], to)
	}
	return &Graph{edges: edges}, nil
}

func normalizeEdge(raw json.RawMessage) (string, string, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return "", "", fmt.Errorf("edge must be a two-element array")
	}
	if len(pair) != 2 {
		return "", "", fmt.Errorf("edge must have exactly two endpoints")
	}
	ends := make([]string, 2)
	for i, p := range pair {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			ends[i] = s
			continue
		}
		var obj struct {
			Slug string `json:"slug"`
		}
		if err := json.Unmarshal(p, &obj); err != nil || obj.Slug == "" {
			return "", "", fmt.Errorf("endpoint must be a slug string or {slug} object")
		}
		ends[i] = obj.Slug
	}
	return ends[0], ends[1], nil
}

// DefaultGraph is the flow used by task types without a graph of their own.
func DefaultGraph() *Graph {
	edges := make(map[string][]string, len(constants.DefaultStatusFlow))
	for from, tos := range constants.DefaultStatusFlow {
		edges[from] = append([]string(nil), tos...)
	}
	return &Graph{edges: edges}
}

// CanTransition reports whether a direct edge between the statuses exists. Callers
// holding the manage override bypass the graph before asking.
func (g *Graph) CanTransition(from, to string) bool {
	for _, next := range g.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the direct successors of a status, sorted.
func (g *Graph) AllowedTransitions(from string) []string {
	out := append([]string(nil), g.edges[from]...)
	sort.Strings(out)
	return out
}

// CanMove applies the full legality rules of the move entry point: a direct
// graph edge, the manage override, or a single step back to the task's
// previous slug. Moving to the current status is never a transition. A
// backward move along a reversed edge whose step-back slot is spent reports
// step_back_exhausted so callers can render a targeted message.
func (g *Graph) CanMove(currentSlug, previousSlug, targetSlug string, manageOverride bool) error {
	if targetSlug == currentSlug {
		return &RuleError{Reason: ReasonNotAllowed}
	}
	if manageOverride {
		return nil
	}
	if g.CanTransition(BaseSlug(currentSlug), BaseSlug(targetSlug)) {
		return nil
	}
	if previousSlug != "" && targetSlug == previousSlug {
		return nil
	}
	if g.CanTransition(BaseSlug(targetSlug), BaseSlug(currentSlug)) {
		return &RuleError{Reason: ReasonStepBackExhausted}
	}
	return &RuleError{Reason: ReasonNotAllowed}
}

// Statuses returns every slug mentioned by the graph, sorted.
func (g *Graph) Statuses() []string {
	seen := map[string]bool{}
	for from, tos := range g.edges {
		seen[from] = true
		for _, to := range tos {
			seen[to] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
