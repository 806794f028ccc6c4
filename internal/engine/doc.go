// Package engine is the stateful surface over the pure graph core.
//
// An Engine owns the current graph of one graph id and is its single
// writer. Every mutation runs the corresponding pure operation against the
// current graph, appends the emitted events to the event log, and only
// then publishes the new graph. A failed append leaves the published graph
// untouched.
//
// Readers never block writers for long: Graph returns the current
// immutable value, and queries, validation and time travel run against
// that value without holding the engine lock.
//
// STARTUP:
//
// Open rebuilds state from the newest snapshot (when a snapshot store is
// configured) plus the tail of the event log after the snapshot's last
// event. Without a snapshot the whole log is replayed onto a bootstrapped
// graph. Both paths go through graph.ProjectGraph, the same code path time
// travel uses.
//
// CHECKPOINTS:
//
// Checkpoint writes graph.MarshalSnapshot of the current graph together
// with the id of the last event folded into it. WithCheckpointEvery makes
// the engine checkpoint automatically after that many events.
package engine
