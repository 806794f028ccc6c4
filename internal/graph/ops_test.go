package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
)

func TestAddNode(t *testing.T) {
	opts := testOpts()
	g := New("g", "test")

	res, err := AddNode(g, person("a", "Alice"), opts...)
	require.NoError(t, err)

	n, ok := res.Graph.Node("a")
	require.True(t, ok)
	assert.Equal(t, ir.Text("Alice"), n.Get("name"))
	assert.False(t, n.Metadata.Created.IsZero())
	assert.Equal(t, n.Metadata.Created, n.Metadata.Modified)

	require.Len(t, res.Events, 1)
	created, ok := res.Events[0].(event.NodeCreated)
	require.True(t, ok)
	assert.Equal(t, ir.NodeID("a"), created.NodeID)
	assert.Equal(t, ir.TypeID("person"), created.NodeType)
	assert.Equal(t, n.Metadata.Created, created.At)
}

func TestAddNodeDuplicate(t *testing.T) {
	g := mustApply(AddNode(New("g", ""), person("a", "Alice"))).Graph

	_, err := AddNode(g, person("a", "Again"))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateID))
}

func TestAddNodeGeneratesID(t *testing.T) {
	res, err := AddNode(New("g", ""), Node{Type: "note"})
	require.NoError(t, err)
	require.Len(t, res.Graph.Nodes(), 1)
	assert.NotEmpty(t, res.Graph.Nodes()[0].ID)
}

func TestMutationsDoNotChangeInput(t *testing.T) {
	opts := testOpts()
	g := New("g", "")
	g = mustApply(AddNode(g, person("a", "Alice"), opts...)).Graph
	g = mustApply(AddNode(g, person("b", "Bob"), opts...)).Graph
	g = mustApply(AddEdge(g, knows("e1", "a", "b"), opts...)).Graph

	before, err := MarshalSnapshot(g)
	require.NoError(t, err)

	mutations := map[string]func() (Result, error){
		"add node":    func() (Result, error) { return AddNode(g, person("c", "Carol"), opts...) },
		"remove node": func() (Result, error) { return RemoveNode(g, "a", opts...) },
		"update node": func() (Result, error) {
			return UpdateNode(g, "a", func(n Node) Node {
				n.Properties["name"] = ir.Text("Alicia")
				delete(n.Properties, "missing")
				return n
			}, opts...)
		},
		"add edge":    func() (Result, error) { return AddEdge(g, knows("e2", "b", "a"), opts...) },
		"remove edge": func() (Result, error) { return RemoveEdge(g, "e1", opts...) },
		"update edge": func() (Result, error) {
			return UpdateEdge(g, "e1", func(e Edge) Edge {
				e.Properties["since"] = ir.Number(2020)
				return e
			}, opts...)
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			res, err := mutate()
			require.NoError(t, err)
			assert.NotSame(t, g, res.Graph)

			after, err := MarshalSnapshot(g)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after), "input graph changed")
		})
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := mustApply(AddNode(New("g", ""), person("a", "Alice"))).Graph

	n, _ := g.Node("a")
	n.Properties["name"] = ir.Text("Mallory")
	g.Nodes()[0].Properties["name"] = ir.Text("Mallory")

	again, _ := g.Node("a")
	assert.Equal(t, ir.Text("Alice"), again.Get("name"))
}

func TestRemoveNodeCascades(t *testing.T) {
	opts := testOpts()
	g := New("g", "")
	for _, n := range []Node{person("a", "A"), person("b", "B"), person("c", "C")} {
		g = mustApply(AddNode(g, n, opts...)).Graph
	}
	g = mustApply(AddEdge(g, knows("e2", "a", "b"), opts...)).Graph
	g = mustApply(AddEdge(g, knows("e1", "c", "a"), opts...)).Graph
	g = mustApply(AddEdge(g, knows("e3", "b", "c"), opts...)).Graph

	res, err := RemoveNode(g, "a", opts...)
	require.NoError(t, err)

	for _, e := range res.Graph.Edges() {
		assert.False(t, e.Touches("a"), "edge %s still touches removed node", e.ID)
	}
	assert.Equal(t, 1, res.Graph.EdgeCount())

	require.Len(t, res.Events, 3)
	assert.Equal(t, event.TypeNodeDeleted, res.Events[0].Type())
	assert.Equal(t, ir.EdgeID("e1"), res.Events[1].(event.EdgeDeleted).EdgeID)
	assert.Equal(t, ir.EdgeID("e2"), res.Events[2].(event.EdgeDeleted).EdgeID)
	assert.Less(t, res.Events[0].EventID(), res.Events[1].EventID())
	assert.Less(t, res.Events[1].EventID(), res.Events[2].EventID())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	g := New("g", "")

	res, err := RemoveNode(g, "missing")
	require.NoError(t, err)
	assert.Same(t, g, res.Graph)
	assert.Empty(t, res.Events)

	res, err = RemoveEdge(g, "missing")
	require.NoError(t, err)
	assert.Same(t, g, res.Graph)
	assert.Empty(t, res.Events)
}

func TestUpdateNodeDiff(t *testing.T) {
	opts := testOpts()
	g := New("g", "")
	g = mustApply(AddNode(g, Node{ID: "a", Type: "person", Properties: ir.PropertyMap{
		"name": ir.Text("Alice"),
		"age":  ir.Number(30),
		"tmp":  ir.Bool(true),
	}}, opts...)).Graph

	res, err := UpdateNode(g, "a", func(n Node) Node {
		n.Properties["age"] = ir.Number(31)
		n.Properties["city"] = ir.Text("Oslo")
		delete(n.Properties, "tmp")
		n.Type = "employee"
		return n
	}, opts...)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	ev := res.Events[0].(event.NodePropertiesUpdated)
	assert.Equal(t, map[string]event.PropertyChange{
		"age":  {Old: ir.Number(30), New: ir.Number(31)},
		"city": {Old: ir.Null{}, New: ir.Text("Oslo")},
	}, ev.Changes)
	assert.Equal(t, []string{"tmp"}, ev.Removed)
	assert.Equal(t, ir.TypeID("employee"), ev.NewType)

	orig, _ := g.Node("a")
	n, _ := res.Graph.Node("a")
	assert.Equal(t, orig.Metadata.Created, n.Metadata.Created)
	assert.True(t, n.Metadata.Modified.After(n.Metadata.Created))
	assert.Equal(t, ir.TypeID("employee"), n.Type)
}

func TestUpdateNodeErrors(t *testing.T) {
	g := mustApply(AddNode(New("g", ""), person("a", "Alice"))).Graph

	_, err := UpdateNode(g, "missing", func(n Node) Node { return n })
	assert.True(t, ir.IsCode(err, ir.ErrCodeNotFound))

	_, err = UpdateNode(g, "a", func(n Node) Node {
		n.ID = "b"
		return n
	})
	assert.True(t, ir.IsCode(err, ir.ErrCodeIdentityViolation))
}

func TestAddEdgeErrors(t *testing.T) {
	g := New("g", "")
	g = mustApply(AddNode(g, person("a", "A"))).Graph
	g = mustApply(AddNode(g, person("b", "B"))).Graph

	_, err := AddEdge(g, knows("e", "a", "zzz"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeDanglingReference))

	_, err = AddEdge(g, knows("e", "zzz", "a"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeDanglingReference))

	g = mustApply(AddEdge(g, knows("e", "a", "b"))).Graph
	_, err = AddEdge(g, knows("e", "b", "a"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateID))
}

func TestUpdateEdge(t *testing.T) {
	opts := testOpts()
	g := New("g", "")
	for _, n := range []Node{person("a", "A"), person("b", "B"), person("c", "C")} {
		g = mustApply(AddNode(g, n, opts...)).Graph
	}
	g = mustApply(AddEdge(g, knows("e", "a", "b"), opts...)).Graph

	_, err := UpdateEdge(g, "e", func(e Edge) Edge {
		e.Target = "nowhere"
		return e
	}, opts...)
	assert.True(t, ir.IsCode(err, ir.ErrCodeDanglingReference))

	_, err = UpdateEdge(g, "e", func(e Edge) Edge {
		e.ID = "other"
		return e
	}, opts...)
	assert.True(t, ir.IsCode(err, ir.ErrCodeIdentityViolation))

	_, err = UpdateEdge(g, "missing", func(e Edge) Edge { return e }, opts...)
	assert.True(t, ir.IsCode(err, ir.ErrCodeNotFound))

	res, err := UpdateEdge(g, "e", func(e Edge) Edge {
		e.Target = "c"
		e.Properties["weight"] = ir.Number(0.5)
		return e
	}, opts...)
	require.NoError(t, err)
	ev := res.Events[0].(event.EdgePropertiesUpdated)
	assert.Equal(t, ir.NodeID("c"), ev.NewTarget)
	assert.Empty(t, ev.NewSource)
	assert.Contains(t, ev.Changes, "weight")
}

type rejectAll struct{}

func (rejectAll) ValidateNode(*Graph, Node) ValidationResult {
	return ValidationResult{Errors: []ValidationError{
		{Code: CodeMissingRequired, Property: "name", Message: "name is required"},
		{Code: CodeKindMismatch, Property: "age", Message: "age must be number"},
	}}
}

func (rejectAll) ValidateEdge(*Graph, Edge) ValidationResult {
	return ValidationResult{Errors: []ValidationError{{Code: CodeInvalidSourceType, Message: "bad source"}}}
}

func TestValidationIsOptIn(t *testing.T) {
	g := New("g", "")

	_, err := AddNode(g, person("a", "A"))
	require.NoError(t, err, "validation only runs when requested")

	_, err = AddNode(g, person("a", "A"), WithValidator(rejectAll{}))
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeValidationFailed))

	var domainErr *ir.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, []string{"name is required", "age must be number"}, domainErr.Details)

	g = mustApply(AddNode(g, person("a", "A"))).Graph
	g = mustApply(AddNode(g, person("b", "B"))).Graph
	_, err = AddEdge(g, knows("e", "a", "b"), WithValidator(rejectAll{}))
	assert.True(t, ir.IsCode(err, ir.ErrCodeValidationFailed))

	_, err = UpdateNode(g, "a", func(n Node) Node { return n }, WithValidator(rejectAll{}))
	assert.True(t, ir.IsCode(err, ir.ErrCodeValidationFailed))
}

func TestQueriesOnGraph(t *testing.T) {
	g := New("g", "")
	g = mustApply(AddNode(g, person("a", "A"))).Graph
	g = mustApply(AddNode(g, person("b", "B"))).Graph
	g = mustApply(AddNode(g, Node{ID: "t", Type: "task"})).Graph
	g = mustApply(AddEdge(g, knows("e1", "a", "b"))).Graph

	assert.Len(t, g.NodesOfType("person"), 2)
	assert.Len(t, g.OutgoingEdges("a"), 1)
	assert.Len(t, g.IncomingEdges("b"), 1)
	assert.Empty(t, g.IncomingEdges("a"))
}
