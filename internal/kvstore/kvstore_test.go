package kvstore

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/snapshot"
	"github.com/roach88/loam/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	blob := []byte(`{"version":1,"id":"g"}`)

	_, _, ok, err := s.Load(ctx, "g")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "g", blob, snapshot.Meta{EventID: "e1", Nodes: 2, SavedAt: testutil.Epoch}))

	got, meta, ok, err := s.Load(ctx, "g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blob, got)
	assert.Equal(t, ir.GraphID("g"), meta.GraphID)
	assert.Equal(t, ir.EventID("e1"), meta.EventID)
	assert.Equal(t, 2, meta.Nodes)
	assert.Equal(t, len(blob), meta.Size)
	assert.True(t, testutil.Epoch.Equal(meta.SavedAt))
}

func TestSaveReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "g", []byte("one"), snapshot.Meta{}))
	require.NoError(t, s.Save(ctx, "g", []byte("two"), snapshot.Meta{}))

	got, _, ok, err := s.Load(ctx, "g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(got))

	require.NoError(t, s.Delete(ctx, "g"))
	require.NoError(t, s.Delete(ctx, "g"), "deleting twice is a no-op")
	_, _, ok, err = s.Load(ctx, "g")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, id := range []ir.GraphID{"c", "a", "b"} {
		require.NoError(t, s.Save(ctx, id, []byte(id), snapshot.Meta{}))
	}

	metas, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]ir.GraphID, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.GraphID)
	}
	assert.Equal(t, []ir.GraphID{"a", "b", "c"}, ids)
}

func TestLoadDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Save(ctx, "g", []byte("payload"), snapshot.Meta{}))

	packed, _, err := snapshot.Pack([]byte("other payload"), snapshot.Meta{})
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey("g"), packed)
	}))

	_, _, _, err = s.Load(ctx, "g")
	assert.ErrorIs(t, err, snapshot.ErrChecksumMismatch)
}

func TestOpenOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "g", []byte("durable"), snapshot.Meta{}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, _, ok, err := s.Load(ctx, "g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", string(got))
}
