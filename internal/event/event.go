// Package event defines the graph event log vocabulary.
//
// An Event is an immutable fact describing one state transition of a graph.
// The six variants form a closed set: Event is sealed, and every consumer
// dispatches through Visitor, so adding a variant is a compile error in each
// consumer until it is handled.
package event

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/loam/internal/ir"
)

// Type is the wire name of an event variant.
type Type string

const (
	TypeNodeCreated           Type = "node_created"
	TypeNodePropertiesUpdated Type = "node_properties_updated"
	TypeNodeDeleted           Type = "node_deleted"
	TypeEdgeCreated           Type = "edge_created"
	TypeEdgePropertiesUpdated Type = "edge_properties_updated"
	TypeEdgeDeleted           Type = "edge_deleted"
)

// Event is a sealed interface implemented by the six event variants.
type Event interface {
	EventID() ir.EventID
	Timestamp() time.Time
	Type() Type

	// Accept dispatches to the visitor method for the concrete variant.
	Accept(v Visitor) error

	sealed()
}

// Visitor handles each event variant.
type Visitor interface {
	VisitNodeCreated(NodeCreated) error
	VisitNodePropertiesUpdated(NodePropertiesUpdated) error
	VisitNodeDeleted(NodeDeleted) error
	VisitEdgeCreated(EdgeCreated) error
	VisitEdgePropertiesUpdated(EdgePropertiesUpdated) error
	VisitEdgeDeleted(EdgeDeleted) error
}

// Header carries the fields shared by every event.
type Header struct {
	ID ir.EventID
	At time.Time
}

// EventID returns the time-sortable event id.
func (h Header) EventID() ir.EventID { return h.ID }

// Timestamp returns when the event happened.
func (h Header) Timestamp() time.Time { return h.At }

// PropertyChange records one changed property. Old is Null for keys that
// were not previously set.
type PropertyChange struct {
	Old ir.Value
	New ir.Value
}

// NodeCreated records insertion of a node.
type NodeCreated struct {
	Header
	NodeID     ir.NodeID
	NodeType   ir.TypeID
	Properties ir.PropertyMap
}

func (NodeCreated) Type() Type               { return TypeNodeCreated }
func (e NodeCreated) Accept(v Visitor) error { return v.VisitNodeCreated(e) }
func (NodeCreated) sealed()                  {}

// NodePropertiesUpdated records a property diff applied to a node.
// NewType is empty unless the update changed the node's type.
type NodePropertiesUpdated struct {
	Header
	NodeID  ir.NodeID
	Changes map[string]PropertyChange
	Removed []string
	NewType ir.TypeID
}

func (NodePropertiesUpdated) Type() Type               { return TypeNodePropertiesUpdated }
func (e NodePropertiesUpdated) Accept(v Visitor) error { return v.VisitNodePropertiesUpdated(e) }
func (NodePropertiesUpdated) sealed()                  {}

// NodeDeleted records removal of a node.
type NodeDeleted struct {
	Header
	NodeID ir.NodeID
}

func (NodeDeleted) Type() Type               { return TypeNodeDeleted }
func (e NodeDeleted) Accept(v Visitor) error { return v.VisitNodeDeleted(e) }
func (NodeDeleted) sealed()                  {}

// EdgeCreated records insertion of an edge.
type EdgeCreated struct {
	Header
	EdgeID     ir.EdgeID
	EdgeType   ir.TypeID
	Source     ir.NodeID
	Target     ir.NodeID
	Properties ir.PropertyMap
}

func (EdgeCreated) Type() Type               { return TypeEdgeCreated }
func (e EdgeCreated) Accept(v Visitor) error { return v.VisitEdgeCreated(e) }
func (EdgeCreated) sealed()                  {}

// EdgePropertiesUpdated records a property diff applied to an edge.
// NewType, NewSource and NewTarget are empty when unchanged.
type EdgePropertiesUpdated struct {
	Header
	EdgeID    ir.EdgeID
	Changes   map[string]PropertyChange
	Removed   []string
	NewType   ir.TypeID
	NewSource ir.NodeID
	NewTarget ir.NodeID
}

func (EdgePropertiesUpdated) Type() Type               { return TypeEdgePropertiesUpdated }
func (e EdgePropertiesUpdated) Accept(v Visitor) error { return v.VisitEdgePropertiesUpdated(e) }
func (EdgePropertiesUpdated) sealed()                  {}

// EdgeDeleted records removal of an edge.
type EdgeDeleted struct {
	Header
	EdgeID ir.EdgeID
}

func (EdgeDeleted) Type() Type               { return TypeEdgeDeleted }
func (e EdgeDeleted) Accept(v Visitor) error { return v.VisitEdgeDeleted(e) }
func (EdgeDeleted) sealed()                  {}

// Diff computes the change set between two property maps.
//
// Every key of next whose value differs from prev is recorded with its old
// value (Null when previously unset). Keys of prev missing from next are
// returned as removed, sorted.
func Diff(prev, next ir.PropertyMap) (map[string]PropertyChange, []string) {
	changes := make(map[string]PropertyChange)
	for k, nv := range next {
		ov, ok := prev[k]
		if ok && ir.Equal(ov, nv) {
			continue
		}
		if !ok {
			ov = ir.Null{}
		}
		changes[k] = PropertyChange{Old: ov, New: nv}
	}

	removed := make([]string, 0)
	for k := range prev {
		if _, ok := next[k]; !ok {
			removed = append(removed, k)
		}
	}
	slices.Sort(removed)
	return changes, removed
}

// Merge applies a change set to props and returns the result.
// props itself is left untouched.
func Merge(props ir.PropertyMap, changes map[string]PropertyChange, removed []string) ir.PropertyMap {
	out := props.Clone()
	for _, k := range removed {
		delete(out, k)
	}
	for _, k := range slices.Sorted(maps.Keys(changes)) {
		out[k] = changes[k].New
	}
	return out
}

// IDs returns the event ids of events, in order.
func IDs(events []Event) []ir.EventID {
	ids := make([]ir.EventID, len(events))
	for i, e := range events {
		ids[i] = e.EventID()
	}
	return ids
}

// Subject returns the id of the node or edge e changed.
func Subject(e Event) string {
	var s subjectOf
	_ = e.Accept(&s)
	return string(s)
}

type subjectOf string

func (s *subjectOf) VisitNodeCreated(e NodeCreated) error {
	*s = subjectOf(e.NodeID)
	return nil
}

func (s *subjectOf) VisitNodePropertiesUpdated(e NodePropertiesUpdated) error {
	*s = subjectOf(e.NodeID)
	return nil
}

func (s *subjectOf) VisitNodeDeleted(e NodeDeleted) error {
	*s = subjectOf(e.NodeID)
	return nil
}

func (s *subjectOf) VisitEdgeCreated(e EdgeCreated) error {
	*s = subjectOf(e.EdgeID)
	return nil
}

func (s *subjectOf) VisitEdgePropertiesUpdated(e EdgePropertiesUpdated) error {
	*s = subjectOf(e.EdgeID)
	return nil
}

func (s *subjectOf) VisitEdgeDeleted(e EdgeDeleted) error {
	*s = subjectOf(e.EdgeID)
	return nil
}

// Subject dispatch must cover every variant.
var _ Visitor = (*subjectOf)(nil)
