// Package schema implements the self-describing type system.
//
// Types are ordinary nodes: a node of type NodeType defines a node type
// whose TypeID equals the defining node's id, and a node of type EdgeType
// defines an edge type. Bootstrap seeds a graph with the system types, and
// ValidateNode / ValidateEdge check entities against whatever definitions
// the graph currently holds. A type with no definition node is unconstrained.
package schema
