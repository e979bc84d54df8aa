package steps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/advisa/pkg/api"
)

func TestBuildGraph_Compiles(t *testing.T) {
	g, err := BuildGraph(api.NewScriptedOracle("query"))
	require.NoError(t, err)

	require.Equal(t, NodeRouter, g.Entry())
	require.ElementsMatch(t,
		[]string{NodeRouter, NodeQuery, NodeFillGap, NodeMetrics, NodeAdvisory, NodeDecider},
		g.Nodes())
}

func TestBuildGraph_RouterFansOutByRoute(t *testing.T) {
	g, err := BuildGraph(api.NewScriptedOracle("query"))
	require.NoError(t, err)

	cases := map[api.Route]string{
		api.RouteQuery:    NodeQuery,
		api.RouteFillGap:  NodeFillGap,
		api.RouteMetrics:  NodeMetrics,
		api.RouteAdvisory: NodeAdvisory,
	}
	for route, want := range cases {
		next, err := g.Next(NodeRouter, api.ThreadState{Route: route})
		require.NoError(t, err)
		require.Equal(t, want, next)
	}
}

func TestBuildGraph_ToolsFeedTheDecider(t *testing.T) {
	g, err := BuildGraph(api.NewScriptedOracle("query"))
	require.NoError(t, err)

	for _, tool := range []string{NodeQuery, NodeFillGap, NodeMetrics, NodeAdvisory} {
		next, err := g.Next(tool, api.ThreadState{})
		require.NoError(t, err)
		require.Equal(t, NodeDecider, next)
	}
}

func TestBuildGraph_DeciderFinishEndsTheRun(t *testing.T) {
	g, err := BuildGraph(api.NewScriptedOracle("finish"))
	require.NoError(t, err)

	next, err := g.Next(NodeDecider, api.ThreadState{Route: api.RouteFinish})
	require.NoError(t, err)
	require.Equal(t, api.End, next)
}

func TestBuildGraph_UnknownTagIsARoutingError(t *testing.T) {
	g, err := BuildGraph(api.NewScriptedOracle("summarize"))
	require.NoError(t, err)

	_, err = g.Next(NodeRouter, api.ThreadState{Route: api.Route("summarize")})
	var rerr *api.RouteNotFoundError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, NodeRouter, rerr.Node)
	require.Equal(t, api.Route("summarize"), rerr.Tag)
}
