package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for loading"
graph: g1
steps:
  - op: add_node
    id: a
    type: person
    properties:
      name: Alice
      age: 30
  - {op: insert_child, parent: p, child: a, index: 0}
assertions:
  - {type: node_exists, node: a}
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "g1", scenario.GraphID())
	require.Len(t, scenario.Steps, 2)
	assert.Equal(t, OpAddNode, scenario.Steps[0].Op)
	assert.Equal(t, "Alice", scenario.Steps[0].Properties["name"])
	assert.Equal(t, 30, scenario.Steps[0].Properties["age"])
	require.NotNil(t, scenario.Steps[1].Index)
	assert.Equal(t, 0, *scenario.Steps[1].Index)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_GraphDefaultsToName(t *testing.T) {
	s := &Scenario{Name: "named"}
	assert.Equal(t, "named", s.GraphID())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: has a typo
stepz: []
steps: [{op: remove_node, id: a}]
assertions: [{type: node_absent, node: a}]
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ResolvesTypesDir(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "cascade_delete.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "types"), scenario.TypesDir)
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nassertions: [{type: node_absent, node: a}]",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nsteps: [{op: remove_node, id: a}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nsteps: [{op: explode}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: `unknown op "explode"`,
		},
		{
			name:    "add_edge without source",
			content: "name: n\ndescription: d\nsteps: [{op: add_edge, type: knows, target: b}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "source is required for add_edge",
		},
		{
			name:    "move_child without index",
			content: "name: n\ndescription: d\nsteps: [{op: move_child, parent: p, child: c}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "index is required for move_child",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: vibes}]",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "at_step out of range",
			content: "name: n\ndescription: d\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: node_absent, node: a, at_step: 2}]",
			wantErr: "at_step 2 out of range",
		},
		{
			name:    "event_order without events",
			content: "name: n\ndescription: d\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: event_order}]",
			wantErr: "events list is required",
		},
		{
			name:    "types and types_dir",
			content: "name: n\ndescription: d\ntypes: 'node_types: {}'\ntypes_dir: x\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing types dir",
			content: "name: n\ndescription: d\ntypes_dir: nowhere\nsteps: [{op: remove_node, id: a}]\nassertions: [{type: node_absent, node: a}]",
			wantErr: "types directory not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
