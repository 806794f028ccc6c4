package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/snapshot"
)

var (
	_ event.Log      = (*Store)(nil)
	_ snapshot.Store = (*Store)(nil)
)

// Save replaces the snapshot of graphID.
func (s *Store) Save(ctx context.Context, graphID ir.GraphID, blob []byte, meta snapshot.Meta) error {
	meta.GraphID = graphID
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now()
	}
	packed, meta, err := snapshot.Pack(blob, meta)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(graph_id, event_id, blob, checksum, size, nodes, edges, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(graph_id) DO UPDATE SET
			event_id = excluded.event_id,
			blob = excluded.blob,
			checksum = excluded.checksum,
			size = excluded.size,
			nodes = excluded.nodes,
			edges = excluded.edges,
			saved_at = excluded.saved_at
	`,
		string(graphID),
		string(meta.EventID),
		packed,
		meta.Checksum,
		meta.Size,
		meta.Nodes,
		meta.Edges,
		event.FormatTime(meta.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot of graphID. ok is false when none is stored.
// A blob that fails checksum verification returns
// snapshot.ErrChecksumMismatch.
func (s *Store) Load(ctx context.Context, graphID ir.GraphID) ([]byte, snapshot.Meta, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT graph_id, event_id, checksum, size, nodes, edges, saved_at, blob
		FROM snapshots
		WHERE graph_id = ?
	`, string(graphID))

	var packed []byte
	meta, err := scanMeta(row, &packed)
	if errors.Is(err, sql.ErrNoRows) {
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE graph_id = ?`, string(graphID)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// List returns metadata of every stored snapshot ordered by graph id.
func (s *Store) List(ctx context.Context) ([]snapshot.Meta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT graph_id, event_id, checksum, size, nodes, edges, saved_at
		FROM snapshots
		ORDER BY graph_id COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	metas := []snapshot.Meta{}
	for rows.Next() {
		meta, err := scanMeta(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return metas, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanMeta reads the metadata columns, plus the blob when blob is non-nil.
func scanMeta(row scanner, blob *[]byte) (snapshot.Meta, error) {
	var (
		graphID, eventID, checksum, savedAt string
		meta                                snapshot.Meta
	)
	dest := []any{&graphID, &eventID, &checksum, &meta.Size, &meta.Nodes, &meta.Edges, &savedAt}
	if blob != nil {
		dest = append(dest, blob)
	}
	if err := row.Scan(dest...); err != nil {
		return snapshot.Meta{}, err
	}

	at, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("parse saved_at: %w", err)
	}
	meta.GraphID = ir.GraphID(graphID)
	meta.EventID = ir.EventID(eventID)
	meta.Checksum = checksum
	meta.SavedAt = at
	return meta, nil
}
