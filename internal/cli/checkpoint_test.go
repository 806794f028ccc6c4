package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/snapshot"
)

func TestCheckpointSQLite(t *testing.T) {
	db := tempDB(t)
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "--format", "json", "checkpoint")

	var meta snapshot.Meta
	resp := decodeResponse(t, out, &meta)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "default", string(meta.GraphID))
	assert.NotEmpty(t, meta.EventID)
	assert.Equal(t, 1, meta.Edges)
	assert.Positive(t, meta.Size)
	assert.NotEmpty(t, meta.Checksum)

	var log LogResult
	decodeResponse(t, mustRun(t, "--db", db, "--format", "json", "log", "--reverse", "--limit", "1"), &log)
	require.Len(t, log.Events, 1)
	assert.Equal(t, log.Events[0].ID, meta.EventID, "the snapshot covers the whole log")
}

func TestCheckpointBadger(t *testing.T) {
	db := tempDB(t)
	t.Setenv("LOAM_SNAPSHOT_BACKEND", "badger")
	seedPeople(t, db)

	out := mustRun(t, "--db", db, "checkpoint")
	assert.Contains(t, out, "✓ Checkpoint written (badger)")
	assert.Contains(t, out, "Nodes:")

	mustRun(t, "--db", db, "node", "add", "--type", "person", "--id", "carol", "--prop", "name=Carol")
	out = mustRun(t, "--db", db, "replay")
	assert.Contains(t, out, "✓ Matches live graph")

	out = mustRun(t, "--db", db, "at", "--time", "2999-01-01T00:00:00Z", "--node", "carol")
	assert.Contains(t, out, `carol	person	{"name":"Carol"}`)
}
