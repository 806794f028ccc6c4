package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtEvent(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)
	mustRun(t, "--db", db, "node", "rm", "alice")

	var log LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log", "--subject", "alice"), &log)
	require.Len(t, log.Events, 2)
	created := log.Events[0].ID

	out := mustRun(t, "--db", db, "--format", "json", "at", "--event", string(created), "--node", "alice", "--list")
	var result AtResult
	decodeResponse(t, out, &result)
	assert.Equal(t, "event "+string(created), result.Target)
	require.NotNil(t, result.Node, "alice exists right after her creation")
	assert.Equal(t, "Alice", result.Node.Properties["name"])
	assert.Equal(t, 0, result.Edges)

	var ids []string
	for _, item := range result.Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"alice", "knows", "person"}, ids, "type definitions are ordinary nodes")
}

func TestAtTimeBeforeHistory(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "at", "--time", "2000-01-01T00:00:00Z", "--node", "alice")
	assert.Contains(t, out, "Graph at time 2000-01-01T00:00:00Z")
	assert.Contains(t, out, "alice: absent")
	assert.Contains(t, out, "Edges: 0")
}

func TestAtRequiresExactlyOneTarget(t *testing.T) {
	db := tempDB(t)

	_, err := runCLI(t, "--db", db, "at")
	require.Error(t, err)

	_, err = runCLI(t, "--db", db, "at", "--time", "2024-01-01T00:00:00Z", "--event", "x")
	require.Error(t, err)
}

func TestAtInvalidTime(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "at", "--time", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
