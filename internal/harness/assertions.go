package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/loam/internal/engine"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/query"
	"github.com/roach88/loam/internal/schema"
	"github.com/roach88/loam/internal/timetravel"
)

// AssertionContext gives assertions access to the engine that ran the
// scenario.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context

	stepEnds []ir.EventID
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s\n", ev.Seq, ev.Step, ev.Label())
		}
	}
	return buf.String()
}

// graphFor returns the graph an assertion inspects: the final graph, or
// the graph as of the end of AtStep.
func (c *AssertionContext) graphFor(a Assertion) (*graph.Graph, error) {
	if a.AtStep == 0 {
		return c.Engine.Graph(), nil
	}
	if a.AtStep > len(c.stepEnds) {
		return nil, fmt.Errorf("at_step %d: only %d steps ran", a.AtStep, len(c.stepEnds))
	}
	last := c.stepEnds[a.AtStep-1]
	if last == "" {
		return schema.Bootstrap(graph.New(c.Engine.GraphID(), "")), nil
	}
	return c.Engine.GraphAt(c.Ctx, timetravel.AtEvent(last))
}

func where(a Assertion) string {
	if a.AtStep == 0 {
		return "final graph"
	}
	return fmt.Sprintf("graph at step %d", a.AtStep)
}

func assertNodeExists(g *graph.Graph, a Assertion) error {
	if g.HasNode(ir.NodeID(a.Node)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNodeExists,
		Expected: fmt.Sprintf("node %s in %s", a.Node, where(a)),
		Actual:   "node not found",
	}
}

func assertNodeAbsent(g *graph.Graph, a Assertion) error {
	if !g.HasNode(ir.NodeID(a.Node)) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNodeAbsent,
		Expected: fmt.Sprintf("no node %s in %s", a.Node, where(a)),
		Actual:   "node present",
	}
}

func assertEdgeCount(g *graph.Graph, a Assertion) error {
	count := 0
	for _, e := range g.Edges() {
		if a.EdgeType == "" || e.Type == ir.TypeID(a.EdgeType) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	what := "edges"
	if a.EdgeType != "" {
		what = a.EdgeType + " edges"
	}
	return &AssertionError{
		Type:     AssertEdgeCount,
		Expected: fmt.Sprintf("%d %s in %s", a.Count, what, where(a)),
		Actual:   fmt.Sprintf("%d %s", count, what),
	}
}

// assertPropertyEquals compares a node property with the expected value.
// An expected null matches an unset property.
func assertPropertyEquals(g *graph.Graph, a Assertion) error {
	want, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("property_equals: value: %w", err)
	}
	n, ok := g.Node(ir.NodeID(a.Node))
	if !ok {
		return &AssertionError{
			Type:     AssertPropertyEquals,
			Expected: fmt.Sprintf("node %s in %s", a.Node, where(a)),
			Actual:   "node not found",
		}
	}

	got := n.Get(a.Property)
	if got == nil {
		got = ir.Null{}
	}
	if ir.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPropertyEquals,
		Expected: fmt.Sprintf("%s.%s = %s", a.Node, a.Property, formatValue(want)),
		Actual:   formatValue(got),
	}
}

func assertQueryCount(g *graph.Graph, a Assertion) error {
	params := make(map[string]ir.Value, len(a.Params))
	for k, raw := range a.Params {
		v, err := ir.FromGo(raw)
		if err != nil {
			return fmt.Errorf("query_count: param %q: %w", k, err)
		}
		params[k] = v
	}

	res, err := query.ExecuteStored(g, ir.NodeID(a.Query), params)
	if err != nil {
		return &AssertionError{
			Type:     AssertQueryCount,
			Expected: fmt.Sprintf("query %s to execute", a.Query),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}
	if res.Len() == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryCount,
		Expected: fmt.Sprintf("%d results from %s with %v", a.Count, a.Query, a.Params),
		Actual:   fmt.Sprintf("%d results", res.Len()),
	}
}

// assertEventOrder checks that the listed type:subject labels appear in
// the trace in order. Other events may appear in between.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && ev.Label() == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Events),
		Actual:   fmt.Sprintf("matched %d of %d, stopped at %s", next, len(a.Events), a.Events[next]),
		Trace:    trace,
	}
}

func assertChildOrder(g *graph.Graph, a Assertion) error {
	got := make([]string, 0)
	for _, c := range schema.Children(g, ir.NodeID(a.Parent)) {
		got = append(got, string(c.Node.ID))
	}
	want := a.Children
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChildOrder,
		Expected: fmt.Sprintf("children of %s: %v", a.Parent, want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if assertion.Type == AssertEventOrder {
			err = assertEventOrder(result.Trace, assertion)
		} else if actx == nil || actx.Engine == nil {
			err = fmt.Errorf("%s requires an engine", assertion.Type)
		} else {
			err = evaluateGraphAssertion(actx, assertion)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errors
}

func evaluateGraphAssertion(actx *AssertionContext, a Assertion) error {
	g, err := actx.graphFor(a)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertNodeExists:
		return assertNodeExists(g, a)
	case AssertNodeAbsent:
		return assertNodeAbsent(g, a)
	case AssertEdgeCount:
		return assertEdgeCount(g, a)
	case AssertPropertyEquals:
		return assertPropertyEquals(g, a)
	case AssertQueryCount:
		return assertQueryCount(g, a)
	case AssertChildOrder:
		return assertChildOrder(g, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
