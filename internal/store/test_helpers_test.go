package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvents builds a short history with deterministic ids: two
// nodes, an edge between them, an update and a cascading delete.
func createTestEvents(t *testing.T) []event.Event {
	t.Helper()
	clock := testutil.NewDeterministicClockAt(testutil.Epoch, time.Millisecond)
	opts := []graph.Option{graph.WithClock(clock.Now), graph.WithIDGenerator(testutil.NewSequentialUUIDv7())}

	var events []event.Event
	g := graph.New("g", "")
	step := func(res graph.Result, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("mutation failed: %v", err)
		}
		g = res.Graph
		events = append(events, res.Events...)
	}
	step(graph.AddNode(g, graph.Node{ID: "a", Type: "person", Properties: ir.PropertyMap{"name": ir.Text("Alice")}}, opts...))
	step(graph.AddNode(g, graph.Node{ID: "b", Type: "person", Properties: ir.PropertyMap{"name": ir.Text("Bob")}}, opts...))
	step(graph.AddEdge(g, graph.Edge{ID: "ab", Type: "knows", Source: "a", Target: "b"}, opts...))
	step(graph.UpdateNode(g, "a", func(n graph.Node) graph.Node {
		n.Properties["age"] = ir.Number(31)
		return n
	}, opts...))
	step(graph.RemoveNode(g, "b", opts...))
	return events
}
