package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/ir"
)

func TestParseProperties(t *testing.T) {
	props, err := parseProperties([]string{
		"name=Alice",
		"age=30",
		"active=true",
		`due={"$date":"2025-01-31"}`,
		`tags=["a","b"]`,
		"note=true story",
		"empty=",
		"eq=a=b",
	})
	require.NoError(t, err)

	assert.Equal(t, ir.Text("Alice"), props["name"])
	assert.Equal(t, ir.Number(30), props["age"])
	assert.Equal(t, ir.Bool(true), props["active"])
	assert.Equal(t, ir.PlainDate{Year: 2025, Month: time.January, Day: 31}, props["due"])
	assert.Equal(t, ir.TextList("a", "b"), props["tags"])
	assert.Equal(t, ir.Text("true story"), props["note"], "a JSON prefix is still text")
	assert.Equal(t, ir.Text(""), props["empty"])
	assert.Equal(t, ir.Text("a=b"), props["eq"], "only the first = splits")
}

func TestParsePropertiesRejectsMalformedPairs(t *testing.T) {
	for _, pair := range []string{"novalue", "=x"} {
		_, err := parseProperties([]string{pair})
		require.Error(t, err, pair)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	}
}

func TestNodeAddJSON(t *testing.T) {
	db := tempDB(t)

	out := mustRun(t, "--db", db, "--format", "json", "node", "add", "--type", "note", "--id", "n1", "--prop", "title=Hello")

	var result MutationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "add_node", result.Op)
	assert.Equal(t, "n1", result.ID)
	assert.Equal(t, 1, result.Events)
	assert.NotEmpty(t, result.LastEvent)
}

func TestNodeAddGeneratesID(t *testing.T) {
	db := tempDB(t)

	out := mustRun(t, "--db", db, "--format", "json", "node", "add", "--type", "note")

	var result MutationResult
	decodeResponse(t, out, &result)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 1, result.Events)
}

func TestNodeAddRequiresType(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "node", "add", "--id", "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestNodeAddDuplicateIsFailure(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "node", "add", "--type", "note", "--id", "n1")

	out, err := runCLI(t, "--db", db, "--format", "json", "node", "add", "--type", "note", "--id", "n1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMutation, resp.Error.Code)
	assert.Equal(t, string(ir.ErrCodeDuplicateID), resp.Error.Details)
}

func TestNodeAddValidationFailure(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "schema", "load", typesDir)

	_, err := runCLI(t, "--db", db, "node", "add", "--type", "person", "--id", "nameless")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := mustRun(t, "--db", db, "log", "--subject", "nameless")
	assert.Contains(t, out, "No events.", "a rejected mutation records nothing")
}

func TestNodeUpdateSetsAndUnsets(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "node", "add", "--type", "note", "--id", "n1", "--prop", "title=Draft", "--prop", "tag=x")

	out := mustRun(t, "--db", db, "node", "update", "n1", "--prop", "title=Final", "--unset", "tag")
	assert.Equal(t, "update_node n1: 1 event(s)\n", out)

	out = mustRun(t, "--db", db, "at", "--time", time.Now().Add(time.Hour).UTC().Format(time.RFC3339), "--node", "n1")
	assert.Contains(t, out, `{"title":"Final"}`)
}

func TestNodeUpdateMissingIsFailure(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "node", "update", "ghost", "--prop", "x=1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestNodeRemoveCascades(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "node", "rm", "alice")
	assert.Equal(t, "remove_node alice: 2 event(s)\n", out)

	out = mustRun(t, "--db", db, "log", "--reverse", "--limit", "2")
	assert.Contains(t, out, "edge_deleted")
	assert.Contains(t, out, "node_deleted")
}

func TestEdgeAddDanglingIsFailure(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "node", "add", "--type", "note", "--id", "n1")

	out, err := runCLI(t, "--db", db, "--format", "json", "edge", "add", "--type", "links", "--from", "n1", "--to", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(ir.ErrCodeDanglingReference), resp.Error.Details)
}

func TestEdgeAddAndRemove(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "edge", "rm", "ab")
	assert.Equal(t, "remove_edge ab: 1 event(s)\n", out)

	out = mustRun(t, "--db", db, "edge", "rm", "ab")
	assert.Equal(t, "remove_edge ab: 0 event(s)\n", out, "removing an absent edge is a no-op")
}
