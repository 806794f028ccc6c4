package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
)

// TraceSnapshot captures the observable outcome of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Nodes        []string     `json:"nodes"` // user node ids in the final graph, sorted
	Edges        []string     `json:"edges"` // edge ids in the final graph, sorted
}

// NewTraceSnapshot builds the snapshot of a result. System nodes are left
// out of Nodes.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	s := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Nodes:        []string{},
		Edges:        []string{},
	}
	if result.Graph == nil {
		return s
	}
	for _, n := range result.Graph.Nodes() {
		if !schema.IsSystem(n.ID) {
			s.Nodes = append(s.Nodes, string(n.ID))
		}
	}
	for _, e := range result.Graph.Edges() {
		s.Edges = append(s.Edges, string(e.ID))
	}
	return s
}

// toCanonicalMap converts the snapshot to the tree ir.MarshalCanonical
// accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"seq":     ev.Seq,
			"step":    ev.Step,
			"type":    ev.Type,
			"subject": ev.Subject,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"nodes":         s.Nodes,
		"edges":         s.Edges,
	}
}

// Marshal renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
