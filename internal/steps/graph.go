package steps

import "github.com/petrijr/advisa/pkg/api"

// Node names of the advisor graph.
const (
	NodeRouter   = "router"
	NodeQuery    = "query_qa"
	NodeFillGap  = "fill_gap"
	NodeMetrics  = "metrics"
	NodeAdvisory = "advisory"
	NodeDecider  = "tool_or_finish"
)

// BuildGraph wires the fixed advisor graph: the router classifies the
// opening utterance and hands off to the matching tool; every tool step
// is followed by the decider, which picks the next tool or finishes.
//
// The advisory tool is only reachable after metrics in the sense that it
// reads CalculatedMetrics if present; ordering is the decider's job.
func BuildGraph(oracle api.Oracle) (*api.Graph, error) {
	b := api.NewGraphBuilder()

	b.AddNode(NodeRouter, Router(oracle))
	b.AddNode(NodeQuery, QueryAnswer)
	b.AddNode(NodeFillGap, FillGap)
	b.AddNode(NodeMetrics, ComputeMetrics)
	b.AddNode(NodeAdvisory, GenerateAdvisory)
	b.AddNode(NodeDecider, Decider(oracle))

	b.SetEntry(NodeRouter)

	byRoute := func(state api.ThreadState) api.Route { return state.Route }

	b.AddConditionalEdge(NodeRouter, byRoute, map[api.Route]string{
		api.RouteQuery:    NodeQuery,
		api.RouteFillGap:  NodeFillGap,
		api.RouteMetrics:  NodeMetrics,
		api.RouteAdvisory: NodeAdvisory,
	})

	for _, tool := range []string{NodeQuery, NodeFillGap, NodeMetrics, NodeAdvisory} {
		b.AddEdge(tool, NodeDecider)
	}

	b.AddConditionalEdge(NodeDecider, byRoute, map[api.Route]string{
		api.RouteQuery:    NodeQuery,
		api.RouteFillGap:  NodeFillGap,
		api.RouteMetrics:  NodeMetrics,
		api.RouteAdvisory: NodeAdvisory,
		api.RouteFinish:   api.End,
	})

	return b.Compile()
}
