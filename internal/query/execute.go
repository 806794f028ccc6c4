package query

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

type scope int

const (
	scopeNone scope = iota
	scopeNodes
	scopeEdges
)

// item is one accumulator entry: a node or an edge.
type item struct {
	node *graph.Node
	edge *graph.Edge
}

// Execute runs q against g.
//
// Fails with ir.ErrCodeInvalidContext when a traversal runs while the
// accumulator does not hold nodes, and with ir.ErrCodeParseFailure for
// steps with unknown operators or directions.
func Execute(g *graph.Graph, q Query) (Result, error) {
	ex := &executor{g: g, items: []item{}}
	for i, s := range q.Steps {
		if err := s.Accept(ex); err != nil {
			return Result{}, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return ex.result(), nil
}

type executor struct {
	g     *graph.Graph
	holds scope
	items []item
}

var _ StepVisitor = (*executor)(nil)

func (ex *executor) result() Result {
	res := Result{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	for _, it := range ex.items {
		switch ex.holds {
		case scopeNodes:
			res.Nodes = append(res.Nodes, *it.node)
		case scopeEdges:
			res.Edges = append(res.Edges, *it.edge)
		}
	}
	return res
}

func (ex *executor) VisitNodeScan(s NodeScan) error {
	ex.holds = scopeNodes
	ex.items = ex.items[:0:0]
	for _, n := range ex.g.Nodes() {
		if s.Type == "" || n.Type == s.Type {
			ex.items = append(ex.items, item{node: &n})
		}
	}
	return nil
}

func (ex *executor) VisitEdgeScan(s EdgeScan) error {
	ex.holds = scopeEdges
	ex.items = ex.items[:0:0]
	for _, e := range ex.g.Edges() {
		if s.Type == "" || e.Type == s.Type {
			ex.items = append(ex.items, item{edge: &e})
		}
	}
	return nil
}

func (ex *executor) VisitFilter(f Filter) error {
	if !validOperators[f.Operator] {
		return ir.NewParseFailure("filter", fmt.Errorf("unknown operator %q", f.Operator))
	}
	kept := make([]item, 0, len(ex.items))
	for _, it := range ex.items {
		v, ok := it.field(f.Property)
		if ok && compare(f.Operator, v, f.Value) {
			kept = append(kept, it)
		}
	}
	ex.items = kept
	return nil
}

func (ex *executor) VisitTraversal(t Traversal) error {
	if ex.holds != scopeNodes {
		return ir.NewInvalidContext("traversal requires nodes, accumulator holds %s", ex.holds)
	}
	if t.Direction != Out && t.Direction != In && t.Direction != Both {
		return ir.NewParseFailure("traversal", fmt.Errorf("unknown direction %q", t.Direction))
	}

	seen := make(map[ir.NodeID]bool)
	reached := make([]item, 0)
	visit := func(id ir.NodeID) {
		if seen[id] {
			return
		}
		n, ok := ex.g.Node(id)
		if !ok {
			return
		}
		seen[id] = true
		reached = append(reached, item{node: &n})
	}

	for _, it := range ex.items {
		id := it.node.ID
		if t.Direction == Out || t.Direction == Both {
			for _, e := range ex.g.OutgoingEdges(id) {
				if t.EdgeType == "" || e.Type == t.EdgeType {
					visit(e.Target)
				}
			}
		}
		if t.Direction == In || t.Direction == Both {
			for _, e := range ex.g.IncomingEdges(id) {
				if t.EdgeType == "" || e.Type == t.EdgeType {
					visit(e.Source)
				}
			}
		}
	}
	ex.items = reached
	return nil
}

func (ex *executor) VisitSort(s Sort) error {
	desc := s.Direction == Desc
	if !desc && s.Direction != Asc && s.Direction != "" {
		return ir.NewParseFailure("sort", fmt.Errorf("unknown direction %q", s.Direction))
	}
	slices.SortStableFunc(ex.items, func(a, b item) int {
		av, aok := a.field(s.Property)
		bv, bok := b.field(s.Property)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c, _ := order(ir.Unwrap(av), ir.Unwrap(bv))
		if desc {
			return -c
		}
		return c
	})
	return nil
}

func (ex *executor) VisitLimit(l Limit) error {
	n := max(l.N, 0)
	if n < len(ex.items) {
		ex.items = ex.items[:n]
	}
	return nil
}

func (c scope) String() string {
	switch c {
	case scopeNodes:
		return "nodes"
	case scopeEdges:
		return "edges"
	default:
		return "nothing"
	}
}

// field resolves a property, falling back to synthetic fields (id, type,
// created, modified, and source/target for edges). Null counts as absent.
func (it item) field(name string) (ir.Value, bool) {
	var props ir.PropertyMap
	if it.node != nil {
		props = it.node.Properties
	} else {
		props = it.edge.Properties
	}
	if v, ok := props[name]; ok {
		if _, null := v.(ir.Null); null || v == nil {
			return nil, false
		}
		return v, true
	}

	if it.node != nil {
		return syntheticField(name, string(it.node.ID), it.node.Type, it.node.Metadata)
	}
	switch name {
	case "source":
		return ir.Text(it.edge.Source), true
	case "target":
		return ir.Text(it.edge.Target), true
	}
	return syntheticField(name, string(it.edge.ID), it.edge.Type, it.edge.Metadata)
}

func syntheticField(name, id string, t ir.TypeID, meta graph.Metadata) (ir.Value, bool) {
	switch name {
	case "id":
		return ir.Text(id), true
	case "type":
		return ir.Text(t), true
	case "created":
		return ir.NewInstant(meta.Created), true
	case "modified":
		return ir.NewInstant(meta.Modified), true
	}
	return nil, false
}

// compare evaluates op with the stored value on the left. Both sides are
// unwrapped to plain Go values first.
func compare(op Operator, stored, want ir.Value) bool {
	if op == OpExists {
		return true
	}
	a, b := ir.Unwrap(stored), ir.Unwrap(want)
	switch op {
	case OpEq:
		return equal(a, b)
	case OpNeq:
		return !equal(a, b)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := order(a, b)
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpContains:
		switch av := a.(type) {
		case string:
			s, ok := b.(string)
			return ok && strings.Contains(av, s)
		case []any:
			return slices.ContainsFunc(av, func(x any) bool { return equal(x, b) })
		}
		return false
	}
	return false
}

func equal(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// order compares two unwrapped values of the same kind. ok is false when
// they are not comparable.
func order(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv), true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}
