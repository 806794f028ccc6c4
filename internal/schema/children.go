package schema

import (
	"cmp"
	"slices"

	"github.com/roach88/loam/internal/fracindex"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// Child is one ordered child of a parent node.
type Child struct {
	Node     graph.Node
	Edge     graph.Edge
	Position string
}

// ChildEdgeID returns the id of the ChildOf edge linking child to parent.
func ChildEdgeID(parent, child ir.NodeID) ir.EdgeID {
	return ir.EdgeID(ChildOf + "/" + string(parent) + "/" + string(child))
}

// Children returns the children of parent ordered by position. Ties and
// edges without a position fall back to edge id order.
func Children(g *graph.Graph, parent ir.NodeID) []Child {
	out := make([]Child, 0)
	for _, e := range g.IncomingEdges(parent) {
		if e.Type != ChildOf {
			continue
		}
		n, ok := g.Node(e.Source)
		if !ok {
			continue
		}
		pos, _ := e.Properties[PropPosition].(ir.Text)
		out = append(out, Child{Node: n, Edge: e, Position: string(pos)})
	}
	slices.SortStableFunc(out, func(a, b Child) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.Edge.ID, b.Edge.ID)
	})
	return out
}

// positionAt returns a key that places a new child at index among
// siblings. Indexes past the end append.
//
// Siblings written concurrently can share a position, and edges created
// outside InsertChild may have none. The lower bound is the sibling before
// index; the upper bound is the next sibling with a strictly greater
// position. A missing position never bounds the key.
func positionAt(siblings []Child, index int) (string, error) {
	index = max(0, min(index, len(siblings)))
	var before, after *string
	if index > 0 && siblings[index-1].Position != "" {
		before = &siblings[index-1].Position
	}
	for j := index; j < len(siblings); j++ {
		pos := siblings[j].Position
		if pos == "" || (before != nil && pos <= *before) {
			continue
		}
		after = &siblings[j].Position
		break
	}
	return fracindex.KeyBetween(before, after)
}

// InsertChild links child under parent at index among the existing
// children (0 inserts first; len or more appends). The ChildOf edge
// carries a fractional position, so no sibling is renumbered.
//
// Fails with ir.ErrCodeDuplicateID if child is already under parent and
// ir.ErrCodeDanglingReference if either node is missing.
func InsertChild(g *graph.Graph, parent, child ir.NodeID, index int, opts ...graph.Option) (graph.Result, error) {
	pos, err := positionAt(Children(g, parent), index)
	if err != nil {
		return graph.Result{}, err
	}
	return graph.AddEdge(g, graph.Edge{
		ID:         ChildEdgeID(parent, child),
		Type:       ChildOf,
		Source:     child,
		Target:     parent,
		Properties: ir.PropertyMap{PropPosition: ir.Text(pos)},
	}, opts...)
}

// AppendChild links child as the last child of parent.
func AppendChild(g *graph.Graph, parent, child ir.NodeID, opts ...graph.Option) (graph.Result, error) {
	return InsertChild(g, parent, child, len(Children(g, parent)), opts...)
}

// MoveChild changes the position of an existing child so that it ends up
// at index among its siblings.
func MoveChild(g *graph.Graph, parent, child ir.NodeID, index int, opts ...graph.Option) (graph.Result, error) {
	id := ChildEdgeID(parent, child)
	if !g.HasEdge(id) {
		return graph.Result{}, ir.NewNotFound("child edge", string(id))
	}
	siblings := slices.DeleteFunc(Children(g, parent), func(c Child) bool { return c.Edge.ID == id })
	pos, err := positionAt(siblings, index)
	if err != nil {
		return graph.Result{}, err
	}
	return graph.UpdateEdge(g, id, func(e graph.Edge) graph.Edge {
		e.Properties[PropPosition] = ir.Text(pos)
		return e
	}, opts...)
}
