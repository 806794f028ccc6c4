package graph

import (
	"time"

	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/testutil"
)

// testOpts returns deterministic clock and id options.
func testOpts() []Option {
	clock := testutil.NewDeterministicClockAt(testutil.Epoch, time.Millisecond)
	return []Option{WithClock(clock.Now), WithIDGenerator(testutil.NewSequentialUUIDv7())}
}

func person(id, name string) Node {
	return Node{ID: ir.NodeID(id), Type: "person", Properties: ir.PropertyMap{"name": ir.Text(name)}}
}

func knows(id, src, dst string) Edge {
	return Edge{ID: ir.EdgeID(id), Type: "knows", Source: ir.NodeID(src), Target: ir.NodeID(dst)}
}

// mustApply runs a mutation and panics on error.
func mustApply(res Result, err error) Result {
	if err != nil {
		panic(err)
	}
	return res
}
