package graph

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/loam/internal/ir"
)

// Metadata records when an entity was created and last modified.
type Metadata struct {
	Created  time.Time
	Modified time.Time
}

// Equal reports whether both timestamps denote the same instants.
func (m Metadata) Equal(other Metadata) bool {
	return m.Created.Equal(other.Created) && m.Modified.Equal(other.Modified)
}

// Node is a typed vertex with properties.
type Node struct {
	ID         ir.NodeID
	Type       ir.TypeID
	Properties ir.PropertyMap
	Metadata   Metadata
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Properties = n.Properties.Clone()
	return n
}

// Get returns a property value, or nil when unset.
func (n Node) Get(name string) ir.Value {
	return n.Properties[name]
}

// Equal reports structural equality.
func (n Node) Equal(other Node) bool {
	return n.ID == other.ID && n.Type == other.Type &&
		n.Properties.Equal(other.Properties) && n.Metadata.Equal(other.Metadata)
}

// Edge is a typed, directed connection between two nodes.
type Edge struct {
	ID         ir.EdgeID
	Type       ir.TypeID
	Source     ir.NodeID
	Target     ir.NodeID
	Properties ir.PropertyMap
	Metadata   Metadata
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	e.Properties = e.Properties.Clone()
	return e
}

// Get returns a property value, or nil when unset.
func (e Edge) Get(name string) ir.Value {
	return e.Properties[name]
}

// Equal reports structural equality.
func (e Edge) Equal(other Edge) bool {
	return e.ID == other.ID && e.Type == other.Type &&
		e.Source == other.Source && e.Target == other.Target &&
		e.Properties.Equal(other.Properties) && e.Metadata.Equal(other.Metadata)
}

// Touches reports whether the edge starts or ends at id.
func (e Edge) Touches(id ir.NodeID) bool {
	return e.Source == id || e.Target == id
}

// Graph is an immutable set of nodes and edges.
//
// The zero value is not usable; create graphs with New.
type Graph struct {
	id    ir.GraphID
	name  string
	meta  Metadata
	nodes map[ir.NodeID]Node
	edges map[ir.EdgeID]Edge
}

// New creates an empty graph.
func New(id ir.GraphID, name string) *Graph {
	return &Graph{
		id:    id,
		name:  name,
		nodes: make(map[ir.NodeID]Node),
		edges: make(map[ir.EdgeID]Edge),
	}
}

// Rename returns a copy of g with the given id and name.
func Rename(g *Graph, id ir.GraphID, name string) *Graph {
	next := g.clone()
	next.id = id
	next.name = name
	return next
}

// ID returns the graph id.
func (g *Graph) ID() ir.GraphID { return g.id }

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Metadata returns the graph metadata.
func (g *Graph) Metadata() Metadata { return g.meta }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// HasNode reports whether a node with id exists.
func (g *Graph) HasNode(id ir.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether an edge with id exists.
func (g *Graph) HasEdge(id ir.EdgeID) bool {
	_, ok := g.edges[id]
	return ok
}

// Node returns a copy of the node with id.
func (g *Graph) Node(id ir.NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// Edge returns a copy of the edge with id.
func (g *Graph) Edge(id ir.EdgeID) (Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return e.Clone(), true
}

// Nodes returns copies of all nodes ordered by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of all edges ordered by id.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, id := range slices.Sorted(maps.Keys(g.edges)) {
		out = append(out, g.edges[id].Clone())
	}
	return out
}

// NodesOfType returns copies of the nodes with the given type, ordered by id.
func (g *Graph) NodesOfType(t ir.TypeID) []Node {
	out := make([]Node, 0)
	for _, n := range g.Nodes() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// OutgoingEdges returns edges whose source is id, ordered by edge id.
func (g *Graph) OutgoingEdges(id ir.NodeID) []Edge {
	return g.edgesWhere(func(e Edge) bool { return e.Source == id })
}

// IncomingEdges returns edges whose target is id, ordered by edge id.
func (g *Graph) IncomingEdges(id ir.NodeID) []Edge {
	return g.edgesWhere(func(e Edge) bool { return e.Target == id })
}

func (g *Graph) edgesWhere(keep func(Edge) bool) []Edge {
	ids := make([]ir.EdgeID, 0)
	for id, e := range g.edges {
		if keep(e) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]Edge, len(ids))
	for i, id := range ids {
		out[i] = g.edges[id].Clone()
	}
	return out
}

// Equal reports whether two graphs hold structurally equal nodes and edges.
// Graph id, name and metadata are not compared.
func Equal(a, b *Graph) bool {
	if len(a.nodes) != len(b.nodes) || len(a.edges) != len(b.edges) {
		return false
	}
	for id, n := range a.nodes {
		other, ok := b.nodes[id]
		if !ok || !n.Equal(other) {
			return false
		}
	}
	for id, e := range a.edges {
		other, ok := b.edges[id]
		if !ok || !e.Equal(other) {
			return false
		}
	}
	return true
}

// clone copies the entity maps. Stored entities are never mutated in place,
// so sharing them between versions is safe.
func (g *Graph) clone() *Graph {
	return &Graph{
		id:    g.id,
		name:  g.name,
		meta:  g.meta,
		nodes: maps.Clone(g.nodes),
		edges: maps.Clone(g.edges),
	}
}

// touch advances the graph modification time to at.
func (g *Graph) touch(at time.Time) {
	if g.meta.Created.IsZero() {
		g.meta.Created = at
	}
	if at.After(g.meta.Modified) {
		g.meta.Modified = at
	}
}

// removeNodeCascade deletes the node and every incident edge, returning
// the ids of removed edges in ascending order.
func (g *Graph) removeNodeCascade(id ir.NodeID) []ir.EdgeID {
	delete(g.nodes, id)
	removed := make([]ir.EdgeID, 0)
	for eid, e := range g.edges {
		if e.Touches(id) {
			removed = append(removed, eid)
		}
	}
	slices.Sort(removed)
	for _, eid := range removed {
		delete(g.edges, eid)
	}
	return removed
}
