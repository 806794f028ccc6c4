package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// typesDir holds the CUE package shared with the harness tests.
const typesDir = "../harness/testdata/types"

// cleanEnv clears every LOAM_ variable so tests see defaults.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOAM_DB", "LOAM_GRAPH", "LOAM_LOG_LEVEL",
		"LOAM_SNAPSHOT_BACKEND", "LOAM_BADGER_DIR", "LOAM_CHECKPOINT_EVERY",
	} {
		t.Setenv(key, "")
	}
}

func tempDB(t *testing.T) string {
	t.Helper()
	cleanEnv(t)
	return filepath.Join(t.TempDir(), "test.db")
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return buf.String(), err
}

// mustRun executes the root command and fails the test on error.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "loam %v\n%s", args, out)
	return out
}

// decodeResponse parses a JSON envelope, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data), string(raw.Data))
	}
	return raw.CLIResponse
}

// seedPeople loads the people types and adds alice -knows-> bob.
func seedPeople(t *testing.T, db string) {
	t.Helper()
	mustRun(t, "--db", db, "schema", "load", typesDir)
	mustRun(t, "--db", db, "node", "add", "--type", "person", "--id", "alice", "--prop", "name=Alice")
	mustRun(t, "--db", db, "node", "add", "--type", "person", "--id", "bob", "--prop", "name=Bob")
	mustRun(t, "--db", db, "edge", "add", "--type", "knows", "--id", "ab", "--from", "alice", "--to", "bob")
}
