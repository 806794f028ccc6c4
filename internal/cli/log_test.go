package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/event"
)

func TestLogEmptyDatabase(t *testing.T) {
	db := tempDB(t)
	out := mustRun(t, "--db", db, "log")
	assert.Equal(t, "No events.\n", out)
}

func TestLogListsEventsInOrder(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "--format", "json", "log")

	var result LogResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)

	// Two type definitions, two nodes, one edge.
	require.Equal(t, 5, result.Count)
	var labels []string
	for i, e := range result.Events {
		labels = append(labels, e.Type+":"+e.Subject)
		if i > 0 {
			assert.Less(t, string(result.Events[i-1].ID), string(e.ID), "ids sort in recording order")
		}
		assert.NotEmpty(t, e.Event, "json output embeds the encoded event")
	}
	assert.Equal(t, []string{
		"node_created:person", "node_created:knows",
		"node_created:alice", "node_created:bob", "edge_created:ab",
	}, labels)

	decoded, err := event.Unmarshal(result.Events[4].Event)
	require.NoError(t, err)
	assert.Equal(t, "ab", event.Subject(decoded))
}

func TestLogWindow(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	var all LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log"), &all)
	require.Len(t, all.Events, 5)

	var after LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log", "--after", string(all.Events[2].ID)), &after)
	require.Len(t, after.Events, 2)
	assert.Equal(t, all.Events[3].ID, after.Events[0].ID)

	var before LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log", "--before", string(all.Events[2].ID)), &before)
	assert.Len(t, before.Events, 2)

	var newest LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log", "--reverse", "--limit", "1"), &newest)
	require.Len(t, newest.Events, 1)
	assert.Equal(t, all.Events[4].ID, newest.Events[0].ID)
}

func TestLogSubjectFilter(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)
	mustRun(t, "--db", db, "node", "update", "alice", "--prop", "name=Alicia")

	out := mustRun(t, "--db", db, "log", "--subject", "alice")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "node_created")
	assert.Contains(t, lines[1], "node_properties_updated")

	out = mustRun(t, "--db", db, "log", "--subject", "alice", "--limit", "1")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestLogNegativeLimit(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "log", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
