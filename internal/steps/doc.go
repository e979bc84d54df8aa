// Package steps implements the node transforms of the process-analysis
// conversation graph: oracle-backed routing and deciding, plus the four
// tool steps (query answering, gap detection, metrics computation and
// advisory generation), and the fixed graph that wires them together.
//
// Tool steps are pure functions over the thread state: they read the
// process report and produce a partial update with exactly one new
// assistant turn. Only the router and decider talk to the oracle.
package steps
