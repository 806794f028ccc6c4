// Package graph implements the immutable typed graph and its event-emitting
// mutation operations.
//
// A *Graph is a value: accessors return copies and every mutation returns a
// new *Graph, leaving the input usable and unchanged. Mutations emit events
// (package event) and ApplyEvent folds those events back into a graph, so
// ProjectGraph over the emitted events reproduces the mutated graph.
//
// Invariants:
//   - Every edge's source and target exist in the graph
//   - Removing a node removes every edge touching it
//   - Node and edge ids never change after creation
package graph
