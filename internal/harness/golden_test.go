package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with the golden file of the same name.
//
// Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestScenarios_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "ordered_children.yaml"))
	require.NoError(t, err)

	first, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	second, err := Run(t.Context(), scenario)
	require.NoError(t, err)

	a := NewTraceSnapshot(scenario.Name, first)
	b := NewTraceSnapshot(scenario.Name, second)
	aj, err := a.Marshal()
	require.NoError(t, err)
	bj, err := b.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(aj), string(bj))

	// Same clock and id sequence: the graphs match down to metadata.
	assert.True(t, first.Graph.Metadata().Equal(second.Graph.Metadata()))
}

func TestTraceSnapshot_Shape(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{{Seq: 1, Step: 1, Type: "node_created", Subject: "a"}}

	s := NewTraceSnapshot("shape", result)
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"edges":[],"nodes":[],"scenario_name":"shape","trace":[{"seq":1,"step":1,"subject":"a","type":"node_created"}]}`,
		string(data))
}
