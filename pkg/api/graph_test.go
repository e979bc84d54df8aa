package api

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, state ThreadState) (StateDelta, error) {
	return StateDelta{}, nil
}

func TestCompile_ValidGraph(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("b", noopNode)
	b.AddEdge("a", "b")
	b.AddEdge("b", End)
	b.SetEntry("a")

	g, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, "a", g.Entry())
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestCompile_MissingEntry(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleMissingEntry, verr.Rule)
}

func TestCompile_UnknownEntry(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.SetEntry("missing")

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleUnknownTarget, verr.Rule)
}

func TestCompile_UnknownEdgeTarget(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.AddEdge("a", "ghost")
	b.SetEntry("a")

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleUnknownTarget, verr.Rule)
	assert.Contains(t, verr.Detail, "ghost")
}

func TestCompile_UnknownConditionalTarget(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.AddConditionalEdge("a", func(ThreadState) Route { return RouteQuery }, map[Route]string{
		RouteQuery: "ghost",
	})
	b.SetEntry("a")

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleUnknownTarget, verr.Rule)
}

func TestCompile_UnreachableNode(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("island", noopNode)
	b.AddEdge("a", End)
	b.SetEntry("a")

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleUnreachableNode, verr.Rule)
	assert.Contains(t, verr.Detail, "island")
}

func TestCompile_ConflictingEdges(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.AddNode("b", noopNode)
	b.AddEdge("a", "b")
	b.AddConditionalEdge("a", func(ThreadState) Route { return RouteQuery }, map[Route]string{
		RouteQuery: "b",
	})
	b.SetEntry("a")

	_, err := b.Compile()
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, RuleConflictingEdges, verr.Rule)
}

func TestAddNode_PanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { NewGraphBuilder().AddNode("", noopNode) })
	assert.Panics(t, func() { NewGraphBuilder().AddNode(End, noopNode) })
	assert.Panics(t, func() { NewGraphBuilder().AddNode("a", nil) })
}

func TestNext_ConditionalResolution(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("router", noopNode)
	b.AddNode("tool", noopNode)
	b.AddConditionalEdge("router", func(s ThreadState) Route { return s.Route }, map[Route]string{
		RouteQuery:  "tool",
		RouteFinish: End,
	})
	b.AddEdge("tool", End)
	b.SetEntry("router")

	g, err := b.Compile()
	require.NoError(t, err)

	next, err := g.Next("router", ThreadState{Route: RouteQuery})
	require.NoError(t, err)
	assert.Equal(t, "tool", next)

	next, err = g.Next("router", ThreadState{Route: RouteFinish})
	require.NoError(t, err)
	assert.Equal(t, End, next)

	_, err = g.Next("router", ThreadState{Route: Route("nonsense")})
	var rerr *RouteNotFoundError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "router", rerr.Node)
}

func TestNext_ImplicitEnd(t *testing.T) {
	b := NewGraphBuilder()
	b.AddNode("a", noopNode)
	b.SetEntry("a")

	g, err := b.Compile()
	require.NoError(t, err)

	next, err := g.Next("a", ThreadState{})
	require.NoError(t, err)
	assert.Equal(t, End, next)
}

// randomChain builds a random but valid graph: a shuffled chain of n
// nodes, each connected to its successor by either a fixed edge or a
// conditional one, with the tail going to End.
func randomChain(rng *rand.Rand, n int) (*GraphBuilder, []string) {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("n%02d", i)
	}
	rng.Shuffle(n, func(a, b int) { names[a], names[b] = names[b], names[a] })

	b := NewGraphBuilder()
	for _, name := range names {
		b.AddNode(name, noopNode)
	}
	for i := 0; i < n-1; i++ {
		if rng.Intn(2) == 0 {
			b.AddEdge(names[i], names[i+1])
		} else {
			b.AddConditionalEdge(names[i], func(s ThreadState) Route { return s.Route }, map[Route]string{
				RouteQuery:  names[i+1],
				RouteFinish: End,
			})
		}
	}
	b.AddEdge(names[n-1], End)
	b.SetEntry(names[0])
	return b, names
}

func TestCompile_RandomizedEdgeSets(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 40; i++ {
		n := 2 + rng.Intn(8)

		t.Run(fmt.Sprintf("valid-%d", i), func(t *testing.T) {
			b, names := randomChain(rng, n)
			g, err := b.Compile()
			require.NoError(t, err)
			assert.ElementsMatch(t, names, g.Nodes())
		})

		t.Run(fmt.Sprintf("unknown-target-%d", i), func(t *testing.T) {
			// The tail always carries the fixed edge to End; repoint it
			// at a node that was never registered.
			b, names := randomChain(rng, n)
			b.AddEdge(names[n-1], "ghost")

			_, err := b.Compile()
			var verr *GraphValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, RuleUnknownTarget, verr.Rule)
		})

		t.Run(fmt.Sprintf("unreachable-%d", i), func(t *testing.T) {
			b, _ := randomChain(rng, n)
			b.AddNode("island", noopNode)
			b.AddEdge("island", End)

			_, err := b.Compile()
			var verr *GraphValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, RuleUnreachableNode, verr.Rule)
		})

		t.Run(fmt.Sprintf("conflicting-%d", i), func(t *testing.T) {
			b, names := randomChain(rng, n)
			b.AddConditionalEdge(names[n-1], func(s ThreadState) Route { return s.Route }, map[Route]string{
				RouteQuery: names[0],
			})

			_, err := b.Compile()
			var verr *GraphValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, RuleConflictingEdges, verr.Rule)
		})

		t.Run(fmt.Sprintf("missing-entry-%d", i), func(t *testing.T) {
			b, _ := randomChain(rng, n)
			b.SetEntry("")

			_, err := b.Compile()
			var verr *GraphValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, RuleMissingEntry, verr.Rule)
		})
	}
}

func TestRoute_Known(t *testing.T) {
	for _, r := range []Route{RouteQuery, RouteFillGap, RouteMetrics, RouteAdvisory, RouteFinish} {
		assert.True(t, r.Known(), string(r))
	}
	assert.False(t, Route("").Known())
	assert.False(t, Route("summarize").Known())
}
