package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaLoad(t *testing.T) {
	db := tempDB(t)

	out := mustRun(t, "--db", db, "--format", "json", "schema", "load", typesDir)

	var result SchemaLoadResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"person"}, result.NodeTypes)
	assert.Equal(t, []string{"knows"}, result.EdgeTypes)
	assert.Equal(t, 2, result.Events)
}

func TestSchemaLoadTwiceReplacesDefinitions(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "schema", "load", typesDir)

	out := mustRun(t, "--db", db, "schema", "load", typesDir)
	assert.Contains(t, out, "Loaded 1 node type(s) and 1 edge type(s)")

	logOut := mustRun(t, "--db", db, "log", "--subject", "person")
	assert.Contains(t, logOut, "node_created")
	assert.Contains(t, logOut, "node_properties_updated")
}

func TestSchemaLoadMissingDir(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "--db", db, "schema", "load", "/nonexistent/types")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_TYPES]")
}

func TestSchemaLoadRequiresDir(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "schema", "load")
	require.Error(t, err)
}
