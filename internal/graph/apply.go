package graph

import (
	"fmt"

	"github.com/roach88/loam/internal/event"
)

// ApplyEvent returns the graph that results from applying e to g.
//
// Create events insert (replacing an entity with the same id). Update
// events merge their diff into the existing entity and are no-ops when the
// entity is absent. NodeDeleted also removes every incident edge. An
// EdgeCreated or endpoint-changing update whose endpoint is missing fails
// with ir.ErrCodeDanglingReference.
func ApplyEvent(g *Graph, e event.Event) (*Graph, error) {
	a := &applier{g: g.clone()}
	if err := e.Accept(a); err != nil {
		return nil, err
	}
	a.g.touch(e.Timestamp())
	return a.g, nil
}

// ProjectGraph folds ApplyEvent over events in the order given.
// A nil initial graph starts from an empty graph.
func ProjectGraph(events []event.Event, initial *Graph) (*Graph, error) {
	g := initial
	if g == nil {
		g = New("", "")
	}
	for _, e := range events {
		next, err := ApplyEvent(g, e)
		if err != nil {
			return nil, fmt.Errorf("apply event %s: %w", e.EventID(), err)
		}
		g = next
	}
	return g, nil
}

// applier mutates its private graph copy.
type applier struct {
	g *Graph
}

func (a *applier) VisitNodeCreated(e event.NodeCreated) error {
	a.g.nodes[e.NodeID] = Node{
		ID:         e.NodeID,
		Type:       e.NodeType,
		Properties: e.Properties.Clone(),
		Metadata:   Metadata{Created: e.At, Modified: e.At},
	}
	return nil
}

func (a *applier) VisitNodePropertiesUpdated(e event.NodePropertiesUpdated) error {
	n, ok := a.g.nodes[e.NodeID]
	if !ok {
		return nil
	}
	n.Properties = event.Merge(n.Properties, e.Changes, e.Removed)
	if e.NewType != "" {
		n.Type = e.NewType
	}
	n.Metadata.Modified = e.At
	a.g.nodes[e.NodeID] = n
	return nil
}

func (a *applier) VisitNodeDeleted(e event.NodeDeleted) error {
	if _, ok := a.g.nodes[e.NodeID]; !ok {
		return nil
	}
	a.g.removeNodeCascade(e.NodeID)
	return nil
}

func (a *applier) VisitEdgeCreated(e event.EdgeCreated) error {
	edge := Edge{
		ID:         e.EdgeID,
		Type:       e.EdgeType,
		Source:     e.Source,
		Target:     e.Target,
		Properties: e.Properties.Clone(),
		Metadata:   Metadata{Created: e.At, Modified: e.At},
	}
	if err := a.g.checkEndpoints(edge); err != nil {
		return err
	}
	a.g.edges[e.EdgeID] = edge
	return nil
}

func (a *applier) VisitEdgePropertiesUpdated(e event.EdgePropertiesUpdated) error {
	edge, ok := a.g.edges[e.EdgeID]
	if !ok {
		return nil
	}
	edge.Properties = event.Merge(edge.Properties, e.Changes, e.Removed)
	if e.NewType != "" {
		edge.Type = e.NewType
	}
	if e.NewSource != "" {
		edge.Source = e.NewSource
	}
	if e.NewTarget != "" {
		edge.Target = e.NewTarget
	}
	if err := a.g.checkEndpoints(edge); err != nil {
		return err
	}
	edge.Metadata.Modified = e.At
	a.g.edges[e.EdgeID] = edge
	return nil
}

func (a *applier) VisitEdgeDeleted(e event.EdgeDeleted) error {
	delete(a.g.edges, e.EdgeID)
	return nil
}

var _ event.Visitor = (*applier)(nil)
