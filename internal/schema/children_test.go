package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

func withBlocks(t *testing.T, ids ...ir.NodeID) *graph.Graph {
	t.Helper()
	g := Bootstrap(graph.New("g", ""))
	for _, id := range append([]ir.NodeID{"page"}, ids...) {
		res, err := graph.AddNode(g, graph.Node{ID: id, Type: "block"})
		require.NoError(t, err)
		g = res.Graph
	}
	return g
}

func childIDs(g *graph.Graph, parent ir.NodeID) []ir.NodeID {
	out := make([]ir.NodeID, 0)
	for _, c := range Children(g, parent) {
		out = append(out, c.Node.ID)
	}
	return out
}

func TestInsertBetweenOrderedBlocks(t *testing.T) {
	g := withBlocks(t, "b1", "b2", "b3", "b4")
	v := graph.WithValidator(Validator{})

	for _, id := range []ir.NodeID{"b1", "b2", "b3"} {
		res, err := AppendChild(g, "page", id, v)
		require.NoError(t, err)
		g = res.Graph
	}

	res, err := InsertChild(g, "page", "b4", 1, v)
	require.NoError(t, err)
	g = res.Graph

	assert.Equal(t, []ir.NodeID{"b1", "b4", "b2", "b3"}, childIDs(g, "page"))

	pos := make(map[ir.NodeID]string)
	for _, c := range Children(g, "page") {
		pos[c.Node.ID] = c.Position
	}
	assert.Less(t, pos["b1"], pos["b4"])
	assert.Less(t, pos["b4"], pos["b2"])
	assert.Less(t, pos["b2"], pos["b3"])
}

func TestInsertChildAtFrontRepeatedly(t *testing.T) {
	ids := []ir.NodeID{"c1", "c2", "c3", "c4", "c5", "c6"}
	g := withBlocks(t, ids...)

	for _, id := range ids {
		res, err := InsertChild(g, "page", id, 0)
		require.NoError(t, err)
		g = res.Graph
	}
	assert.Equal(t, []ir.NodeID{"c6", "c5", "c4", "c3", "c2", "c1"}, childIDs(g, "page"))
}

func TestInsertChildErrors(t *testing.T) {
	g := withBlocks(t, "b1")
	res, err := AppendChild(g, "page", "b1")
	require.NoError(t, err)

	_, err = AppendChild(res.Graph, "page", "b1")
	assert.True(t, ir.IsCode(err, ir.ErrCodeDuplicateID))

	_, err = AppendChild(res.Graph, "page", "ghost")
	assert.True(t, ir.IsCode(err, ir.ErrCodeDanglingReference))
}

func TestMoveChild(t *testing.T) {
	g := withBlocks(t, "b1", "b2", "b3")
	for _, id := range []ir.NodeID{"b1", "b2", "b3"} {
		res, err := AppendChild(g, "page", id)
		require.NoError(t, err)
		g = res.Graph
	}

	res, err := MoveChild(g, "page", "b3", 0)
	require.NoError(t, err)
	assert.Equal(t, []ir.NodeID{"b3", "b1", "b2"}, childIDs(res.Graph, "page"))

	res, err = MoveChild(res.Graph, "page", "b3", 99)
	require.NoError(t, err)
	assert.Equal(t, []ir.NodeID{"b1", "b2", "b3"}, childIDs(res.Graph, "page"))

	_, err = MoveChild(g, "page", "ghost", 0)
	assert.True(t, ir.IsCode(err, ir.ErrCodeNotFound))
}

func TestRemovingChildDropsItFromOrder(t *testing.T) {
	g := withBlocks(t, "b1", "b2")
	for _, id := range []ir.NodeID{"b1", "b2"} {
		res, err := AppendChild(g, "page", id)
		require.NoError(t, err)
		g = res.Graph
	}

	res, err := graph.RemoveNode(g, "b1")
	require.NoError(t, err)
	assert.Equal(t, []ir.NodeID{"b2"}, childIDs(res.Graph, "page"))
}

// linkAt adds a ChildOf edge with a fixed position, as a merged history
// from two writers can leave behind.
func linkAt(t *testing.T, g *graph.Graph, parent, child ir.NodeID, pos string) *graph.Graph {
	t.Helper()
	props := ir.PropertyMap{}
	if pos != "" {
		props[PropPosition] = ir.Text(pos)
	}
	res, err := graph.AddEdge(g, graph.Edge{
		ID:         ChildEdgeID(parent, child),
		Type:       ChildOf,
		Source:     child,
		Target:     parent,
		Properties: props,
	})
	require.NoError(t, err)
	return res.Graph
}

func TestInsertChildBetweenTiedPositions(t *testing.T) {
	g := withBlocks(t, "b1", "b2", "b3", "b4")
	g = linkAt(t, g, "page", "b1", "V")
	g = linkAt(t, g, "page", "b2", "V")
	g = linkAt(t, g, "page", "b4", "k")

	res, err := InsertChild(g, "page", "b3", 1)
	require.NoError(t, err)
	g = res.Graph

	pos := make(map[ir.NodeID]string)
	for _, c := range Children(g, "page") {
		pos[c.Node.ID] = c.Position
	}
	assert.Greater(t, pos["b3"], "V")
	assert.Less(t, pos["b3"], "k")
	assert.Equal(t, []ir.NodeID{"b1", "b2", "b3", "b4"}, childIDs(g, "page"))
}

func TestInsertChildAfterTiedTail(t *testing.T) {
	g := withBlocks(t, "b1", "b2", "b3")
	g = linkAt(t, g, "page", "b1", "V")
	g = linkAt(t, g, "page", "b2", "V")

	res, err := InsertChild(g, "page", "b3", 1)
	require.NoError(t, err)

	assert.Equal(t, []ir.NodeID{"b1", "b2", "b3"}, childIDs(res.Graph, "page"))
}

func TestInsertChildNextToMissingPosition(t *testing.T) {
	g := withBlocks(t, "b1", "b2", "b3")
	g = linkAt(t, g, "page", "b1", "")
	g = linkAt(t, g, "page", "b2", "V")

	res, err := InsertChild(g, "page", "b3", 1)
	require.NoError(t, err)

	assert.Equal(t, []ir.NodeID{"b1", "b3", "b2"}, childIDs(res.Graph, "page"))
}
