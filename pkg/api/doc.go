// Package api contains the core building blocks used by the advisa
// conversation engine: the shared thread state and its merge policies, the
// step graph with conditional routing, checkpoints, the oracle and engine
// interfaces, stream events and the error taxonomy.
//
// Most users interact with the higher-level advisa package, which
// re-exports selected types and helpers from this package. The api package
// is intended for custom integrations or contributors extending the engine
// itself.
package api
