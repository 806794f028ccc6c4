package store

import (
	"context"
	"fmt"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
)

// AppendEvents inserts events into the log of graphID in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - events already stored
// under the same id are silently skipped.
//
// Payloads are serialized to canonical JSON per RFC 8785, so appending the
// same event twice from different processes writes identical bytes.
func (s *Store) AppendEvents(ctx context.Context, graphID ir.GraphID, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(graph_id, event_id, type, payload, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(graph_id, event_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := event.MarshalPayload(e)
		if err != nil {
			return fmt.Errorf("append events: marshal %s: %w", e.EventID(), err)
		}
		_, err = stmt.ExecContext(ctx,
			string(graphID),
			string(e.EventID()),
			string(e.Type()),
			string(payload),
			event.FormatTime(e.Timestamp()),
		)
		if err != nil {
			return fmt.Errorf("append events: insert %s: %w", e.EventID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}
