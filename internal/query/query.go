// Package query implements the step pipeline used to read graphs.
//
// A Query is an ordered list of steps run left to right over an
// accumulator that holds either nodes or edges. Scans replace the
// accumulator, filters and sorts refine it, traversals move from nodes to
// neighbouring nodes, and limit truncates it. Queries serialize to JSON and
// can be stored on QueryDefinition nodes with $name parameters.
package query

import (
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// Operator compares a property against a filter value.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpContains Operator = "contains"
	OpExists   Operator = "exists"
)

var validOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpContains: true, OpExists: true,
}

// Direction selects which edges a traversal follows.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// SortDirection orders sort results.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Step is a sealed interface implemented by the six step kinds.
type Step interface {
	Accept(v StepVisitor) error
	step()
}

// StepVisitor handles each step kind.
type StepVisitor interface {
	VisitNodeScan(NodeScan) error
	VisitEdgeScan(EdgeScan) error
	VisitFilter(Filter) error
	VisitTraversal(Traversal) error
	VisitSort(Sort) error
	VisitLimit(Limit) error
}

// NodeScan replaces the accumulator with all nodes, optionally of one type.
type NodeScan struct {
	Type ir.TypeID
}

// EdgeScan replaces the accumulator with all edges, optionally of one type.
type EdgeScan struct {
	Type ir.TypeID
}

// Filter keeps items whose property compares true against Value.
// Value is ignored for OpExists.
type Filter struct {
	Property string
	Operator Operator
	Value    ir.Value
}

// Traversal replaces the current nodes with their neighbours.
type Traversal struct {
	EdgeType  ir.TypeID
	Direction Direction
}

// Sort stable-sorts by a property; items without it go last.
type Sort struct {
	Property  string
	Direction SortDirection
}

// Limit keeps the first N items.
type Limit struct {
	N int
}

func (s NodeScan) Accept(v StepVisitor) error  { return v.VisitNodeScan(s) }
func (s EdgeScan) Accept(v StepVisitor) error  { return v.VisitEdgeScan(s) }
func (s Filter) Accept(v StepVisitor) error    { return v.VisitFilter(s) }
func (s Traversal) Accept(v StepVisitor) error { return v.VisitTraversal(s) }
func (s Sort) Accept(v StepVisitor) error      { return v.VisitSort(s) }
func (s Limit) Accept(v StepVisitor) error     { return v.VisitLimit(s) }

func (NodeScan) step()  {}
func (EdgeScan) step()  {}
func (Filter) step()    {}
func (Traversal) step() {}
func (Sort) step()      {}
func (Limit) step()     {}

// Query is an ordered pipeline of steps.
type Query struct {
	Steps []Step
}

// Result holds the output of a query. Exactly one side is populated,
// according to the final context; a query without scans returns neither.
type Result struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// Len returns the number of result items.
func (r Result) Len() int {
	return len(r.Nodes) + len(r.Edges)
}

// Builder assembles a Query fluently.
//
//	q := query.New().
//		NodeScan("task").
//		Filter("priority", query.OpEq, ir.Text("high")).
//		Sort("created", query.Desc).
//		Limit(10).
//		Build()
type Builder struct {
	steps []Step
}

// New starts an empty query.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) add(s Step) *Builder {
	b.steps = append(b.steps, s)
	return b
}

// NodeScan adds a node scan. An empty type scans every node.
func (b *Builder) NodeScan(t ir.TypeID) *Builder { return b.add(NodeScan{Type: t}) }

// EdgeScan adds an edge scan. An empty type scans every edge.
func (b *Builder) EdgeScan(t ir.TypeID) *Builder { return b.add(EdgeScan{Type: t}) }

// Filter adds a comparison filter.
func (b *Builder) Filter(property string, op Operator, v ir.Value) *Builder {
	return b.add(Filter{Property: property, Operator: op, Value: v})
}

// Exists adds a filter keeping items that have the property.
func (b *Builder) Exists(property string) *Builder {
	return b.add(Filter{Property: property, Operator: OpExists})
}

// Traverse adds a traversal. An empty edge type follows every edge.
func (b *Builder) Traverse(edgeType ir.TypeID, dir Direction) *Builder {
	return b.add(Traversal{EdgeType: edgeType, Direction: dir})
}

// Sort adds a sort step.
func (b *Builder) Sort(property string, dir SortDirection) *Builder {
	return b.add(Sort{Property: property, Direction: dir})
}

// Limit adds a limit step.
func (b *Builder) Limit(n int) *Builder { return b.add(Limit{N: n}) }

// Build returns the query. The builder may be reused afterwards.
func (b *Builder) Build() Query {
	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)
	return Query{Steps: steps}
}
