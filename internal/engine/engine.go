package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/query"
	"github.com/roach88/loam/internal/schema"
	"github.com/roach88/loam/internal/snapshot"
	"github.com/roach88/loam/internal/timetravel"
)

// ErrNoSnapshotStore is returned by Checkpoint when the engine was opened
// without a snapshot store.
var ErrNoSnapshotStore = errors.New("no snapshot store configured")

// Engine is the single writer for one graph.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized by an internal mutex; reads work on the immutable graph
// value current at the time of the call.
type Engine struct {
	graphID ir.GraphID
	log     event.Log
	snaps   snapshot.Store
	clock   *Clock
	ids     ir.IDGenerator
	logger  *slog.Logger

	validate        bool
	checkpointEvery int

	mu      sync.Mutex
	g       *graph.Graph
	last    ir.EventID
	pending int // events applied since the last checkpoint
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for event stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = NewClockFrom(now)
	}
}

// WithIDGenerator sets the event and node id generator.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithSnapshots enables snapshot loading on Open and Checkpoint.
func WithSnapshots(s snapshot.Store) Option {
	return func(e *Engine) {
		e.snaps = s
	}
}

// WithCheckpointEvery checkpoints automatically once n events have been
// applied since the last checkpoint. Zero disables automatic checkpoints.
// Has no effect without WithSnapshots.
func WithCheckpointEvery(n int) Option {
	return func(e *Engine) {
		e.checkpointEvery = n
	}
}

// WithoutValidation disables type validation of mutations.
//
// Default: mutations are validated against the type definitions in the
// graph and fail with ir.ErrCodeValidationFailed.
func WithoutValidation() Option {
	return func(e *Engine) {
		e.validate = false
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Open rebuilds graphID from its snapshot and event log.
//
// A snapshot that cannot be read or decoded is logged and ignored; the
// engine then replays the full log.
func Open(ctx context.Context, graphID ir.GraphID, log event.Log, opts ...Option) (*Engine, error) {
	e := &Engine{
		graphID:  graphID,
		log:      log,
		clock:    NewClock(),
		ids:      ir.NewUUIDv7Generator(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	base, after := e.loadSnapshot(ctx)
	tail, err := log.GetEvents(ctx, graphID, event.Range{After: after})
	if err != nil {
		return nil, fmt.Errorf("open %s: read events: %w", graphID, err)
	}
	g, err := graph.ProjectGraph(tail, base)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", graphID, err)
	}

	e.g = g
	e.last = after
	if len(tail) > 0 {
		e.last = tail[len(tail)-1].EventID()
	}
	e.pending = len(tail)
	if r, ok := e.ids.(resumer); ok && e.last != "" {
		r.Resume(string(e.last))
	}

	e.logger.Info("engine opened",
		"graph", graphID,
		"from_snapshot", after != "",
		"replayed", len(tail),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
	)
	return e, nil
}

// resumer is implemented by id generators that can continue after an id
// issued by an earlier process.
type resumer interface {
	Resume(last string)
}

// loadSnapshot returns the graph to replay onto and the event id to
// replay after.
func (e *Engine) loadSnapshot(ctx context.Context) (*graph.Graph, ir.EventID) {
	fresh := schema.Bootstrap(graph.New(e.graphID, ""))
	if e.snaps == nil {
		return fresh, ""
	}

	blob, meta, ok, err := e.snaps.Load(ctx, e.graphID)
	if err != nil {
		e.logger.Warn("snapshot unreadable, replaying full log", "graph", e.graphID, "error", err)
		return fresh, ""
	}
	if !ok {
		return fresh, ""
	}
	g, err := graph.UnmarshalSnapshot(blob)
	if err != nil {
		e.logger.Warn("snapshot undecodable, replaying full log", "graph", e.graphID, "error", err)
		return fresh, ""
	}
	return schema.Bootstrap(g), meta.EventID
}

// GraphID returns the id of the engine's graph.
func (e *Engine) GraphID() ir.GraphID {
	return e.graphID
}

// Graph returns the current graph. The value is immutable and remains
// valid after later mutations.
func (e *Engine) Graph() *graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.g
}

// LastEventID returns the id of the newest applied event, or "" if none.
func (e *Engine) LastEventID() ir.EventID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) options() []graph.Option {
	opts := []graph.Option{graph.WithClock(e.clock.Now), graph.WithIDGenerator(e.ids)}
	if e.validate {
		opts = append(opts, graph.WithValidator(schema.Validator{}))
	}
	return opts
}

// mutate runs fn against the current graph, persists the emitted events
// and publishes the result.
func (e *Engine) mutate(ctx context.Context, op string, fn func(*graph.Graph, []graph.Option) (graph.Result, error)) (graph.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := fn(e.g, e.options())
	if err != nil {
		return graph.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(res.Events) == 0 {
		return res, nil
	}

	if err := e.log.AppendEvents(ctx, e.graphID, res.Events); err != nil {
		return graph.Result{}, &PersistError{Op: op, GraphID: e.graphID, Events: len(res.Events), Err: err}
	}

	e.g = res.Graph
	e.last = res.Events[len(res.Events)-1].EventID()
	e.pending += len(res.Events)

	e.logger.Debug("mutation applied",
		"op", op,
		"graph", e.graphID,
		"events", len(res.Events),
		"last_event", e.last,
	)

	if e.snaps != nil && e.checkpointEvery > 0 && e.pending >= e.checkpointEvery {
		if _, err := e.checkpointLocked(ctx); err != nil {
			e.logger.Warn("automatic checkpoint failed", "graph", e.graphID, "error", err)
		}
	}
	return res, nil
}

// AddNode inserts n. See graph.AddNode.
func (e *Engine) AddNode(ctx context.Context, n graph.Node) (graph.Result, error) {
	return e.mutate(ctx, "add_node", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.AddNode(g, n, opts...)
	})
}

// UpdateNode replaces node id with updater's result. See graph.UpdateNode.
func (e *Engine) UpdateNode(ctx context.Context, id ir.NodeID, updater func(graph.Node) graph.Node) (graph.Result, error) {
	return e.mutate(ctx, "update_node", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.UpdateNode(g, id, updater, opts...)
	})
}

// RemoveNode deletes node id and its edges. See graph.RemoveNode.
func (e *Engine) RemoveNode(ctx context.Context, id ir.NodeID) (graph.Result, error) {
	return e.mutate(ctx, "remove_node", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.RemoveNode(g, id, opts...)
	})
}

// AddEdge inserts edge. See graph.AddEdge.
func (e *Engine) AddEdge(ctx context.Context, edge graph.Edge) (graph.Result, error) {
	return e.mutate(ctx, "add_edge", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.AddEdge(g, edge, opts...)
	})
}

// UpdateEdge replaces edge id with updater's result. See graph.UpdateEdge.
func (e *Engine) UpdateEdge(ctx context.Context, id ir.EdgeID, updater func(graph.Edge) graph.Edge) (graph.Result, error) {
	return e.mutate(ctx, "update_edge", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.UpdateEdge(g, id, updater, opts...)
	})
}

// RemoveEdge deletes edge id. See graph.RemoveEdge.
func (e *Engine) RemoveEdge(ctx context.Context, id ir.EdgeID) (graph.Result, error) {
	return e.mutate(ctx, "remove_edge", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return graph.RemoveEdge(g, id, opts...)
	})
}

// InsertChild places child under parent at index. See schema.InsertChild.
func (e *Engine) InsertChild(ctx context.Context, parent, child ir.NodeID, index int) (graph.Result, error) {
	return e.mutate(ctx, "insert_child", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return schema.InsertChild(g, parent, child, index, opts...)
	})
}

// AppendChild places child last under parent.
func (e *Engine) AppendChild(ctx context.Context, parent, child ir.NodeID) (graph.Result, error) {
	return e.mutate(ctx, "append_child", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return schema.AppendChild(g, parent, child, opts...)
	})
}

// MoveChild moves child to index among parent's children.
func (e *Engine) MoveChild(ctx context.Context, parent, child ir.NodeID, index int) (graph.Result, error) {
	return e.mutate(ctx, "move_child", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return schema.MoveChild(g, parent, child, index, opts...)
	})
}

// SaveQuery stores a query definition. See query.SaveDefinition.
func (e *Engine) SaveQuery(ctx context.Context, def query.Definition) (graph.Result, error) {
	return e.mutate(ctx, "save_query", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return query.SaveDefinition(g, def, opts...)
	})
}

// SaveView stores a view definition. See query.SaveView.
func (e *Engine) SaveView(ctx context.Context, v query.ViewDefinition) (graph.Result, error) {
	return e.mutate(ctx, "save_view", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		return query.SaveView(g, v, opts...)
	})
}

// DefineTypes writes every definition in ts as a type node, creating new
// definitions and replacing existing ones. All events are persisted in one
// append.
func (e *Engine) DefineTypes(ctx context.Context, ts *schema.TypeSet) (graph.Result, error) {
	nodes, err := ts.Nodes()
	if err != nil {
		return graph.Result{}, fmt.Errorf("define_types: %w", err)
	}
	return e.mutate(ctx, "define_types", func(g *graph.Graph, opts []graph.Option) (graph.Result, error) {
		out := graph.Result{Graph: g, Events: []event.Event{}}
		for _, n := range nodes {
			var (
				res graph.Result
				err error
			)
			if out.Graph.HasNode(n.ID) {
				res, err = graph.UpdateNode(out.Graph, n.ID, func(cur graph.Node) graph.Node {
					cur.Type = n.Type
					cur.Properties = n.Properties.Clone()
					return cur
				}, opts...)
			} else {
				res, err = graph.AddNode(out.Graph, n, opts...)
			}
			if err != nil {
				return graph.Result{}, fmt.Errorf("type %s: %w", n.ID, err)
			}
			out.Graph = res.Graph
			out.Events = append(out.Events, res.Events...)
		}
		return out, nil
	})
}

// Query runs q against the current graph.
func (e *Engine) Query(q query.Query) (query.Result, error) {
	return query.Execute(e.Graph(), q)
}

// ExecuteStored runs stored query id with params.
func (e *Engine) ExecuteStored(id ir.NodeID, params map[string]ir.Value) (query.Result, error) {
	return query.ExecuteStored(e.Graph(), id, params)
}

// ExecuteView runs view id with params.
func (e *Engine) ExecuteView(id ir.NodeID, params map[string]ir.Value) (query.Result, error) {
	return query.ExecuteView(e.Graph(), id, params)
}

// Validate checks the whole current graph against its type definitions.
func (e *Engine) Validate() []schema.Violation {
	return schema.ValidateGraph(e.Graph())
}

// ChildCycles reports cycles in the ordered-children hierarchy.
func (e *Engine) ChildCycles() []schema.CycleWarning {
	return schema.ChildCycles(e.Graph())
}

// Events reads the engine's event log.
func (e *Engine) Events(ctx context.Context, r event.Range) ([]event.Event, error) {
	return e.log.GetEvents(ctx, e.graphID, r)
}

// GraphAt reconstructs the graph at target from the event log.
func (e *Engine) GraphAt(ctx context.Context, target timetravel.Target) (*graph.Graph, error) {
	return timetravel.GetGraphAt(ctx, e.log, e.graphID, target)
}

// Checkpoint snapshots the current graph.
func (e *Engine) Checkpoint(ctx context.Context) (snapshot.Meta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkpointLocked(ctx)
}

func (e *Engine) checkpointLocked(ctx context.Context) (snapshot.Meta, error) {
	if e.snaps == nil {
		return snapshot.Meta{}, ErrNoSnapshotStore
	}
	blob, err := graph.MarshalSnapshot(e.g)
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("checkpoint %s: %w", e.graphID, err)
	}
	meta := snapshot.Meta{
		GraphID:  e.graphID,
		EventID:  e.last,
		Nodes:    e.g.NodeCount(),
		Edges:    e.g.EdgeCount(),
		Size:     len(blob),
		Checksum: snapshot.Checksum(blob),
		SavedAt:  e.clock.Now(),
	}
	if err := e.snaps.Save(ctx, e.graphID, blob, meta); err != nil {
		return snapshot.Meta{}, fmt.Errorf("checkpoint %s: %w", e.graphID, err)
	}
	e.pending = 0

	e.logger.Info("checkpoint written",
		"graph", e.graphID,
		"event", e.last,
		"nodes", meta.Nodes,
		"edges", meta.Edges,
		"bytes", len(blob),
	)
	return meta, nil
}
