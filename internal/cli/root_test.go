package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "loam", cmd.Use)
	assert.Contains(t, cmd.Long, "LOAM_DB")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"node", "edge", "child", "query", "log", "at", "replay", "validate", "schema", "checkpoint", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"node", "add"}, {"node", "update"}, {"node", "rm"},
		{"edge", "add"}, {"edge", "rm"},
		{"child", "add"}, {"child", "mv"}, {"child", "ls"},
		{"schema", "load"},
	} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], subCmd.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"db", "graph"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, "empty means the environment decides")
	}
}

func TestInvalidFormat(t *testing.T) {
	db := tempDB(t)
	_, err := runCLI(t, "--db", db, "--format", "xml", "log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestInvalidSnapshotBackend(t *testing.T) {
	db := tempDB(t)
	t.Setenv("LOAM_SNAPSHOT_BACKEND", "s3")

	_, err := runCLI(t, "--db", db, "log")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestGraphFlagIsolatesGraphs(t *testing.T) {
	db := tempDB(t)
	mustRun(t, "--db", db, "--graph", "one", "node", "add", "--type", "note", "--id", "n1")

	out := mustRun(t, "--db", db, "--graph", "two", "log")
	assert.Contains(t, out, "No events.")

	out = mustRun(t, "--db", db, "--graph", "one", "log")
	assert.Contains(t, out, "node_created")
	assert.Contains(t, out, "n1")
}
