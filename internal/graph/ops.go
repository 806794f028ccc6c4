package graph

import (
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
)

// defaultIDs is shared so ids from separate calls stay ordered.
var defaultIDs = ir.NewUUIDv7Generator()

// Result is the outcome of a successful mutation.
type Result struct {
	Graph  *Graph
	Events []event.Event
}

type options struct {
	validator Validator
	now       func() time.Time
	ids       ir.IDGenerator
}

// Option configures a mutation.
type Option func(*options)

// WithValidator enables validation of the new or updated entity.
func WithValidator(v Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithClock sets the time source used for event timestamps and metadata.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator sets the event id generator.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

func buildOptions(opts []Option) *options {
	o := &options{now: time.Now, ids: defaultIDs}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// header stamps a new event.
func (o *options) header() event.Header {
	return o.headerAt(o.now().UTC())
}

// headerAt stamps a new event at at. A UUIDv7 generator that is ahead of
// the clock (resumed past a later id, or out of counter space) issues an
// id from a later millisecond; the timestamp moves up to that millisecond
// so that an event's time never precedes its id.
func (o *options) headerAt(at time.Time) event.Header {
	id := ir.EventID(o.ids.Generate(at))
	if idAt, err := ir.EventIDTime(id); err == nil && idAt.UnixMilli() > at.UnixMilli() {
		at = idAt
	}
	return event.Header{ID: id, At: at}
}

// AddNode inserts n and emits NodeCreated.
//
// The node's metadata is set to the event time. Fails with
// ir.ErrCodeDuplicateID if the id is taken, and with
// ir.ErrCodeValidationFailed when validating and the node violates its type.
func AddNode(g *Graph, n Node, opts ...Option) (Result, error) {
	o := buildOptions(opts)
	if n.ID == "" {
		n.ID = ir.NewNodeID()
	}
	if g.HasNode(n.ID) {
		return Result{}, ir.NewDuplicateID("node", string(n.ID))
	}
	n = n.Clone()
	if o.validator != nil {
		if res := o.validator.ValidateNode(g, n); !res.Valid {
			return Result{}, ir.NewValidationFailed(string(n.ID), res.Messages())
		}
	}

	h := o.header()
	n.Metadata = Metadata{Created: h.At, Modified: h.At}

	next := g.clone()
	next.nodes[n.ID] = n
	next.touch(h.At)

	return Result{
		Graph: next,
		Events: []event.Event{event.NodeCreated{
			Header:     h,
			NodeID:     n.ID,
			NodeType:   n.Type,
			Properties: n.Properties.Clone(),
		}},
	}, nil
}

// RemoveNode deletes the node and every edge touching it.
//
// Emits NodeDeleted followed by one EdgeDeleted per cascaded edge, in edge
// id order. Removing an absent node returns g unchanged with no events.
func RemoveNode(g *Graph, id ir.NodeID, opts ...Option) (Result, error) {
	if !g.HasNode(id) {
		return Result{Graph: g, Events: []event.Event{}}, nil
	}
	o := buildOptions(opts)

	h := o.header()
	next := g.clone()
	cascaded := next.removeNodeCascade(id)
	next.touch(h.At)

	events := make([]event.Event, 0, 1+len(cascaded))
	events = append(events, event.NodeDeleted{Header: h, NodeID: id})
	for _, eid := range cascaded {
		events = append(events, event.EdgeDeleted{Header: o.headerAt(h.At), EdgeID: eid})
	}
	return Result{Graph: next, Events: events}, nil
}

// UpdateNode applies updater to a copy of the node and emits
// NodePropertiesUpdated carrying the property diff.
//
// Fails with ir.ErrCodeNotFound if the node is absent, with
// ir.ErrCodeIdentityViolation if updater changes the id, and with
// ir.ErrCodeValidationFailed when validating against the (possibly new) type
// fails. Created is preserved; Modified is set to the event time.
func UpdateNode(g *Graph, id ir.NodeID, updater func(Node) Node, opts ...Option) (Result, error) {
	current, ok := g.Node(id)
	if !ok {
		return Result{}, ir.NewNotFound("node", string(id))
	}
	o := buildOptions(opts)

	updated := updater(current.Clone())
	if updated.ID != id {
		return Result{}, ir.NewIdentityViolation("node", string(id), string(updated.ID))
	}
	updated = updated.Clone()
	if o.validator != nil {
		if res := o.validator.ValidateNode(g, updated); !res.Valid {
			return Result{}, ir.NewValidationFailed(string(id), res.Messages())
		}
	}

	h := o.header()
	updated.Metadata = Metadata{Created: current.Metadata.Created, Modified: h.At}

	changes, removed := event.Diff(current.Properties, updated.Properties)
	ev := event.NodePropertiesUpdated{Header: h, NodeID: id, Changes: changes, Removed: removed}
	if updated.Type != current.Type {
		ev.NewType = updated.Type
	}

	next := g.clone()
	next.nodes[id] = updated
	next.touch(h.At)
	return Result{Graph: next, Events: []event.Event{ev}}, nil
}

// AddEdge inserts e and emits EdgeCreated.
//
// Fails with ir.ErrCodeDuplicateID if the id is taken, with
// ir.ErrCodeDanglingReference if either endpoint is missing, and with
// ir.ErrCodeValidationFailed when validating and the edge violates its type.
func AddEdge(g *Graph, e Edge, opts ...Option) (Result, error) {
	o := buildOptions(opts)
	if e.ID == "" {
		e.ID = ir.EdgeID(ir.NewNodeID())
	}
	if g.HasEdge(e.ID) {
		return Result{}, ir.NewDuplicateID("edge", string(e.ID))
	}
	if err := g.checkEndpoints(e); err != nil {
		return Result{}, err
	}
	e = e.Clone()
	if o.validator != nil {
		if res := o.validator.ValidateEdge(g, e); !res.Valid {
			return Result{}, ir.NewValidationFailed(string(e.ID), res.Messages())
		}
	}

	h := o.header()
	e.Metadata = Metadata{Created: h.At, Modified: h.At}

	next := g.clone()
	next.edges[e.ID] = e
	next.touch(h.At)

	return Result{
		Graph: next,
		Events: []event.Event{event.EdgeCreated{
			Header:     h,
			EdgeID:     e.ID,
			EdgeType:   e.Type,
			Source:     e.Source,
			Target:     e.Target,
			Properties: e.Properties.Clone(),
		}},
	}, nil
}

// RemoveEdge deletes the edge and emits EdgeDeleted.
// Removing an absent edge returns g unchanged with no events.
func RemoveEdge(g *Graph, id ir.EdgeID, opts ...Option) (Result, error) {
	if !g.HasEdge(id) {
		return Result{Graph: g, Events: []event.Event{}}, nil
	}
	o := buildOptions(opts)

	h := o.header()
	next := g.clone()
	delete(next.edges, id)
	next.touch(h.At)
	return Result{Graph: next, Events: []event.Event{event.EdgeDeleted{Header: h, EdgeID: id}}}, nil
}

// UpdateEdge applies updater to a copy of the edge and emits
// EdgePropertiesUpdated.
//
// Fails like UpdateNode, and additionally with ir.ErrCodeDanglingReference
// when the updated endpoints do not exist.
func UpdateEdge(g *Graph, id ir.EdgeID, updater func(Edge) Edge, opts ...Option) (Result, error) {
	current, ok := g.Edge(id)
	if !ok {
		return Result{}, ir.NewNotFound("edge", string(id))
	}
	o := buildOptions(opts)

	updated := updater(current.Clone())
	if updated.ID != id {
		return Result{}, ir.NewIdentityViolation("edge", string(id), string(updated.ID))
	}
	if err := g.checkEndpoints(updated); err != nil {
		return Result{}, err
	}
	updated = updated.Clone()
	if o.validator != nil {
		if res := o.validator.ValidateEdge(g, updated); !res.Valid {
			return Result{}, ir.NewValidationFailed(string(id), res.Messages())
		}
	}

	h := o.header()
	updated.Metadata = Metadata{Created: current.Metadata.Created, Modified: h.At}

	changes, removed := event.Diff(current.Properties, updated.Properties)
	ev := event.EdgePropertiesUpdated{Header: h, EdgeID: id, Changes: changes, Removed: removed}
	if updated.Type != current.Type {
		ev.NewType = updated.Type
	}
	if updated.Source != current.Source {
		ev.NewSource = updated.Source
	}
	if updated.Target != current.Target {
		ev.NewTarget = updated.Target
	}

	next := g.clone()
	next.edges[id] = updated
	next.touch(h.At)
	return Result{Graph: next, Events: []event.Event{ev}}, nil
}

func (g *Graph) checkEndpoints(e Edge) error {
	if !g.HasNode(e.Source) {
		return ir.NewDanglingReference(string(e.ID), "source", e.Source)
	}
	if !g.HasNode(e.Target) {
		return ir.NewDanglingReference(string(e.ID), "target", e.Target)
	}
	return nil
}
