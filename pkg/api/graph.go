package api

import (
	"context"
	"fmt"
	"sort"
)

// Route is a classification tag produced by the router and decider nodes.
// It doubles as conversation content (the decider logs its choice as an
// assistant turn) and as control data: the conditional edge after each
// classification node maps the tag to the next node.
//
// The set of meaningful tags is closed. An oracle reply outside this set
// still becomes a Route value, but edge resolution will fail with a
// RouteNotFoundError instead of silently defaulting.
type Route string

const (
	RouteQuery    Route = "query"
	RouteFillGap  Route = "fill_gap"
	RouteMetrics  Route = "metrics"
	RouteAdvisory Route = "advisory"
	RouteFinish   Route = "finish"
)

// Known reports whether r is one of the enumerated route tags.
func (r Route) Known() bool {
	switch r {
	case RouteQuery, RouteFillGap, RouteMetrics, RouteAdvisory, RouteFinish:
		return true
	}
	return false
}

// End is the terminal sentinel. It is a valid edge target but never a node:
// reaching it stops the run.
const End = "__end__"

// NodeFunc is the transform attached to a graph node. It consumes the
// current state and produces a partial update; it must not retain or
// mutate the state it was given.
type NodeFunc func(ctx context.Context, state ThreadState) (StateDelta, error)

// SelectorFunc picks the route tag used to resolve a conditional edge.
type SelectorFunc func(state ThreadState) Route

// conditionalEdge pairs a selector with its tag-to-target table.
type conditionalEdge struct {
	selector SelectorFunc
	targets  map[Route]string
}

// GraphBuilder accumulates nodes and edges and validates them in Compile.
//
// Structural mistakes (unknown targets, unreachable nodes, conflicting
// edges) are reported by Compile as *GraphValidationError. Outright
// programming errors (empty names, nil functions) panic immediately,
// matching how graphs are normally assembled once at startup.
type GraphBuilder struct {
	nodes       map[string]NodeFunc
	order       []string
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
}

// NewGraphBuilder returns an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// AddNode registers a named step.
func (b *GraphBuilder) AddNode(name string, fn NodeFunc) *GraphBuilder {
	if name == "" || name == End {
		panic(fmt.Sprintf("advisa: invalid node name %q", name))
	}
	if fn == nil {
		panic(fmt.Sprintf("advisa: node %q has nil function", name))
	}
	if _, exists := b.nodes[name]; !exists {
		b.order = append(b.order, name)
	}
	b.nodes[name] = fn
	return b
}

// AddEdge registers a fixed transition from one node to another (or to End).
func (b *GraphBuilder) AddEdge(from, to string) *GraphBuilder {
	b.edges[from] = to
	return b
}

// AddConditionalEdge registers a transition resolved by selector at run
// time: the returned tag is looked up in targets. An unmatched tag is a
// run-time RouteNotFoundError, never a silent no-op.
func (b *GraphBuilder) AddConditionalEdge(from string, selector SelectorFunc, targets map[Route]string) *GraphBuilder {
	if selector == nil {
		panic(fmt.Sprintf("advisa: conditional edge from %q has nil selector", from))
	}
	copied := make(map[Route]string, len(targets))
	for tag, target := range targets {
		copied[tag] = target
	}
	b.conditional[from] = conditionalEdge{selector: selector, targets: copied}
	return b
}

// SetEntry marks the node every new thread starts at.
func (b *GraphBuilder) SetEntry(name string) *GraphBuilder {
	b.entry = name
	return b
}

// Compile validates the accumulated definition and returns an immutable
// Graph. It fails with *GraphValidationError naming the violated rule;
// it never silently drops an edge.
func (b *GraphBuilder) Compile() (*Graph, error) {
	if b.entry == "" {
		return nil, &GraphValidationError{Rule: RuleMissingEntry, Detail: "no entry node set"}
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, &GraphValidationError{Rule: RuleUnknownTarget, Detail: fmt.Sprintf("entry node %q is not registered", b.entry)}
	}

	checkTarget := func(from, to string) error {
		if to == End {
			return nil
		}
		if _, ok := b.nodes[to]; !ok {
			return &GraphValidationError{Rule: RuleUnknownTarget, Detail: fmt.Sprintf("edge %q -> %q references unknown node", from, to)}
		}
		return nil
	}

	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, &GraphValidationError{Rule: RuleUnknownTarget, Detail: fmt.Sprintf("edge source %q is not a registered node", from)}
		}
		if _, overlap := b.conditional[from]; overlap {
			return nil, &GraphValidationError{Rule: RuleConflictingEdges, Detail: fmt.Sprintf("node %q has both a fixed and a conditional edge", from)}
		}
		if err := checkTarget(from, to); err != nil {
			return nil, err
		}
	}

	for from, edge := range b.conditional {
		if _, ok := b.nodes[from]; !ok {
			return nil, &GraphValidationError{Rule: RuleUnknownTarget, Detail: fmt.Sprintf("conditional edge source %q is not a registered node", from)}
		}
		if len(edge.targets) == 0 {
			return nil, &GraphValidationError{Rule: RuleUnknownTarget, Detail: fmt.Sprintf("conditional edge from %q has no targets", from)}
		}
		for _, to := range edge.targets {
			if err := checkTarget(from, to); err != nil {
				return nil, err
			}
		}
	}

	// Every node must be reachable from the entry.
	reachable := map[string]bool{b.entry: true}
	frontier := []string{b.entry}
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]

		var outgoing []string
		if to, ok := b.edges[node]; ok {
			outgoing = append(outgoing, to)
		}
		if edge, ok := b.conditional[node]; ok {
			for _, to := range edge.targets {
				outgoing = append(outgoing, to)
			}
		}
		for _, to := range outgoing {
			if to == End || reachable[to] {
				continue
			}
			reachable[to] = true
			frontier = append(frontier, to)
		}
	}
	var orphans []string
	for name := range b.nodes {
		if !reachable[name] {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return nil, &GraphValidationError{Rule: RuleUnreachableNode, Detail: fmt.Sprintf("nodes not reachable from entry %q: %v", b.entry, orphans)}
	}

	g := &Graph{
		nodes:       make(map[string]NodeFunc, len(b.nodes)),
		order:       append([]string(nil), b.order...),
		edges:       make(map[string]string, len(b.edges)),
		conditional: make(map[string]conditionalEdge, len(b.conditional)),
		entry:       b.entry,
	}
	for name, fn := range b.nodes {
		g.nodes[name] = fn
	}
	for from, to := range b.edges {
		g.edges[from] = to
	}
	for from, edge := range b.conditional {
		g.conditional[from] = edge
	}
	return g, nil
}

// Graph is an immutable, validated step graph.
type Graph struct {
	nodes       map[string]NodeFunc
	order       []string
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
}

// Entry returns the name of the entry node.
func (g *Graph) Entry() string {
	return g.entry
}

// Nodes returns the node names in registration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Node looks up a node's transform by name.
func (g *Graph) Node(name string) (NodeFunc, bool) {
	fn, ok := g.nodes[name]
	return fn, ok
}

// Next resolves the outgoing edge of a node against the given state and
// returns the name of the next pending step (possibly End).
//
// A node with no outgoing edge implicitly transitions to End. An unmatched
// conditional tag returns *RouteNotFoundError.
func (g *Graph) Next(from string, state ThreadState) (string, error) {
	if to, ok := g.edges[from]; ok {
		return to, nil
	}
	if edge, ok := g.conditional[from]; ok {
		tag := edge.selector(state)
		if to, ok := edge.targets[tag]; ok {
			return to, nil
		}
		return "", &RouteNotFoundError{Node: from, Tag: tag}
	}
	return End, nil
}
