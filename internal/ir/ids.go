package ir

// NodeID uniquely identifies a node within its graph.
type NodeID string

// EdgeID uniquely identifies an edge within its graph.
type EdgeID string

// GraphID identifies a graph.
type GraphID string

// TypeID names a node or edge type. By convention a type definition's
// TypeID equals the NodeID of the node that defines it.
type TypeID string

// EventID identifies an event. Event ids are UUIDv7 strings and sort by
// creation time.
type EventID string

// AsNode returns the node id a type id refers to by convention.
func (t TypeID) AsNode() NodeID {
	return NodeID(t)
}

// AsType returns the type id defined by the node with this id.
func (n NodeID) AsType() TypeID {
	return TypeID(n)
}
