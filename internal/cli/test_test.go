package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: two_people
description: Two people are created in order
types: |
  node_types: person: properties: name: {kind: "text", required: true}
steps:
  - {op: add_node, id: a, type: person, properties: {name: Ann}}
  - {op: add_node, id: b, type: person, properties: {name: Ben}}
assertions:
  - {type: node_exists, node: b}
`

const failingScenario = `name: wrong_count
description: Asserts an edge count the steps never produce
steps:
  - {op: add_node, id: a, type: note}
assertions:
  - {type: edge_count, count: 3}
`

const twoPeopleGolden = `{"edges":[],"nodes":["a","b","person"],"scenario_name":"two_people","trace":[{"seq":1,"step":1,"subject":"a","type":"node_created"},{"seq":2,"step":2,"subject":"b","type":"node_created"}]}`

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	cleanEnv(t)
	_, err := runCLI(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	cleanEnv(t)
	_, err := runCLI(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	cleanEnv(t)
	out := mustRun(t, "test", t.TempDir())
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPassing(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "two_people.yaml", passingScenario)

	out := mustRun(t, "test", dir)
	assert.Contains(t, out, "✓ two_people")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandFailing(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "two_people.yaml", passingScenario)
	writeScenario(t, dir, "wrong_count.yaml", failingScenario)

	out, err := runCLI(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	for _, sr := range result.Scenarios {
		if sr.Name == "wrong_count" {
			assert.False(t, sr.Pass)
			require.NotEmpty(t, sr.Errors)
			assert.Contains(t, sr.Errors[0], "edge_count")
		}
	}
}

func TestTestCommandFilter(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "two_people.yaml", passingScenario)
	writeScenario(t, dir, "wrong_count.yaml", failingScenario)

	out := mustRun(t, "test", dir, "--filter", "two_*")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, err := runCLI(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandGoldenUpdateAndMatch(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	path := writeScenario(t, dir, "two_people.yaml", passingScenario)

	out := mustRun(t, "test", path, "--update")
	assert.Contains(t, out, "✓ two_people (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "two_people.golden"))
	require.NoError(t, err)
	assert.Equal(t, twoPeopleGolden, string(golden))

	out = mustRun(t, "--format", "json", "test", dir)
	var result TestResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Scenarios, 1, "golden files are not scenarios")
	assert.Equal(t, "match", result.Scenarios[0].Golden)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	writeScenario(t, dir, "two_people.yaml", passingScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "two_people.golden"), []byte(`{"trace":[]}`), 0o644))

	out, err := runCLI(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ two_people")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	cleanEnv(t)
	out := mustRun(t, "test", "../harness/testdata/scenarios")
	assert.Contains(t, out, "5 passed, 0 failed, 5 total")
}
