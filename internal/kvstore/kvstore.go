// Package kvstore stores graph snapshots in an embedded Badger key-value
// database. It is the alternative to the SQLite snapshot table for
// deployments that keep snapshots apart from the event log.
//
// Each graph owns two keys written in one transaction:
//
//	snapshot/meta/<graph-id>  JSON snapshot.Meta
//	snapshot/blob/<graph-id>  zstd-compressed blob
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/snapshot"
)

const (
	metaPrefix = "snapshot/meta/"
	blobPrefix = "snapshot/blob/"
)

// Store is a snapshot.Store backed by Badger.
type Store struct {
	db *badger.DB
}

var _ snapshot.Store = (*Store)(nil)

// Open opens or creates a Badger database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func metaKey(id ir.GraphID) []byte { return []byte(metaPrefix + string(id)) }
func blobKey(id ir.GraphID) []byte { return []byte(blobPrefix + string(id)) }

// Save replaces the snapshot of graphID.
func (s *Store) Save(ctx context.Context, graphID ir.GraphID, blob []byte, meta snapshot.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta.GraphID = graphID
	packed, meta, err := snapshot.Pack(blob, meta)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("save snapshot: marshal meta: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blobKey(graphID), packed); err != nil {
			return err
		}
		return txn.Set(metaKey(graphID), metaJSON)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot of graphID. ok is false when none is stored.
func (s *Store) Load(ctx context.Context, graphID ir.GraphID) ([]byte, snapshot.Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, snapshot.Meta{}, false, err
	}

	var (
		meta   snapshot.Meta
		packed []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(graphID))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return fmt.Errorf("decode meta: %w", err)
		}

		item, err = txn.Get(blobKey(graphID))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, snapshot.Meta{}, false, nil
	}
	if err != nil {
		return nil, snapshot.Meta{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	blob, err := snapshot.Unpack(packed, meta)
	if err != nil {
		return nil, snapshot.Meta{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return blob, meta, true, nil
}

// Delete removes the snapshot of graphID.
func (s *Store) Delete(ctx context.Context, graphID ir.GraphID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(graphID)); err != nil {
			return err
		}
		return txn.Delete(blobKey(graphID))
	})
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// List returns metadata of every stored snapshot ordered by graph id.
// Badger iterates keys in byte order, so no sort is needed.
func (s *Store) List(ctx context.Context) ([]snapshot.Meta, error) {
	metas := []snapshot.Meta{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta snapshot.Meta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("decode meta %s: %w", it.Item().Key(), err)
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return metas, nil
}
