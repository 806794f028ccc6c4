package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/loam/internal/engine"
	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/query"
	"github.com/roach88/loam/internal/schema"
	"github.com/roach88/loam/internal/testutil"
)

// Harness executes scenario steps against one engine.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory event log. The clock starts
// at testutil.Epoch and event ids come from testutil.SequentialUUIDv7, so
// the same scenario always produces the same events.
//
// A step that fails unexpectedly stops the run; the result then carries
// the failure and assertions are not evaluated. The returned error is
// reserved for setup failures such as invalid type definitions.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	eng, err := engine.Open(ctx, ir.GraphID(scenario.GraphID()), event.NewMemoryLog(),
		engine.WithClock(clock.Now),
		engine.WithIDGenerator(testutil.NewSequentialUUIDv7()),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	h := &Harness{engine: eng, clock: clock, logger: logger}
	if err := h.defineTypes(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to define types: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if !h.executeStep(ctx, i+1, step, result) {
			result.Graph = eng.Graph()
			return result, nil
		}
	}
	result.Graph = eng.Graph()

	actx := &AssertionContext{Engine: eng, Ctx: ctx, stepEnds: result.stepEnds}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) defineTypes(ctx context.Context, s *Scenario) error {
	var (
		ts  *schema.TypeSet
		err error
	)
	switch {
	case s.Types != "":
		ts, err = schema.CompileTypesString(s.Types)
	case s.TypesDir != "":
		ts, err = schema.LoadTypesDir(s.TypesDir)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	_, err = h.engine.DefineTypes(ctx, ts)
	return err
}

// executeStep runs one step and records its events. It returns false when
// the run must stop.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) bool {
	res, err := h.apply(ctx, step)

	switch {
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got success", n, step.Op, step.ExpectError))
		return false
	case step.ExpectError != "" && string(ir.CodeOf(err)) != step.ExpectError:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %v", n, step.Op, step.ExpectError, err))
		return false
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("step %d (%s): %v", n, step.Op, err))
		return false
	}

	if err == nil {
		result.addEvents(n, res.Events)
	}
	result.stepEnds = append(result.stepEnds, h.engine.LastEventID())

	h.logger.Info("step completed",
		"step", n,
		"op", step.Op,
		"events", len(res.Events),
		"expected_error", step.ExpectError,
	)
	return true
}

func (h *Harness) apply(ctx context.Context, step Step) (graph.Result, error) {
	eng := h.engine
	switch step.Op {
	case OpAddNode:
		props, err := convertProperties(step.Properties)
		if err != nil {
			return graph.Result{}, err
		}
		return eng.AddNode(ctx, graph.Node{
			ID:         ir.NodeID(step.ID),
			Type:       ir.TypeID(step.Type),
			Properties: props,
		})

	case OpUpdateNode:
		set, unset, err := splitProperties(step.Properties)
		if err != nil {
			return graph.Result{}, err
		}
		return eng.UpdateNode(ctx, ir.NodeID(step.ID), func(n graph.Node) graph.Node {
			if step.Type != "" {
				n.Type = ir.TypeID(step.Type)
			}
			n.Properties = event.Merge(n.Properties, set, unset)
			return n
		})

	case OpRemoveNode:
		return eng.RemoveNode(ctx, ir.NodeID(step.ID))

	case OpAddEdge:
		props, err := convertProperties(step.Properties)
		if err != nil {
			return graph.Result{}, err
		}
		return eng.AddEdge(ctx, graph.Edge{
			ID:         ir.EdgeID(step.ID),
			Type:       ir.TypeID(step.Type),
			Source:     ir.NodeID(step.Source),
			Target:     ir.NodeID(step.Target),
			Properties: props,
		})

	case OpUpdateEdge:
		set, unset, err := splitProperties(step.Properties)
		if err != nil {
			return graph.Result{}, err
		}
		return eng.UpdateEdge(ctx, ir.EdgeID(step.ID), func(e graph.Edge) graph.Edge {
			if step.Type != "" {
				e.Type = ir.TypeID(step.Type)
			}
			e.Properties = event.Merge(e.Properties, set, unset)
			return e
		})

	case OpRemoveEdge:
		return eng.RemoveEdge(ctx, ir.EdgeID(step.ID))

	case OpInsertChild:
		parent, child := ir.NodeID(step.Parent), ir.NodeID(step.Child)
		if step.Index == nil {
			return eng.AppendChild(ctx, parent, child)
		}
		return eng.InsertChild(ctx, parent, child, *step.Index)

	case OpMoveChild:
		return eng.MoveChild(ctx, ir.NodeID(step.Parent), ir.NodeID(step.Child), *step.Index)

	case OpSaveQuery:
		q, err := query.Unmarshal([]byte(step.Query))
		if err != nil {
			return graph.Result{}, err
		}
		name := step.Name
		if name == "" {
			name = step.ID
		}
		return eng.SaveQuery(ctx, query.Definition{
			ID:         ir.NodeID(step.ID),
			Name:       name,
			Query:      q,
			Parameters: step.Parameters,
		})

	default:
		return graph.Result{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

// convertProperties converts YAML-decoded values to a PropertyMap.
func convertProperties(raw map[string]any) (ir.PropertyMap, error) {
	props := make(ir.PropertyMap, len(raw))
	for key, val := range raw {
		v, err := ir.FromGo(val)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		props[key] = v
	}
	return props, nil
}

// splitProperties turns an update's property map into changes and
// removals. A YAML null removes the property.
func splitProperties(raw map[string]any) (map[string]event.PropertyChange, []string, error) {
	set := make(map[string]event.PropertyChange, len(raw))
	unset := []string{}
	for key, val := range raw {
		if val == nil {
			unset = append(unset, key)
			continue
		}
		v, err := ir.FromGo(val)
		if err != nil {
			return nil, nil, fmt.Errorf("property %q: %w", key, err)
		}
		set[key] = event.PropertyChange{New: v}
	}
	return set, unset, nil
}
