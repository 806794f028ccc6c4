package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/ir"
)

// GetEvents returns the events of graphID inside r.
// Results are ordered deterministically: ORDER BY event_id COLLATE BINARY,
// descending when r.Reverse is set.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) GetEvents(ctx context.Context, graphID ir.GraphID, r event.Range) ([]event.Event, error) {
	where := []string{"graph_id = ?"}
	args := []any{string(graphID)}
	if r.After != "" {
		where = append(where, "event_id > ? COLLATE BINARY")
		args = append(args, string(r.After))
	}
	if r.Before != "" {
		where = append(where, "event_id < ? COLLATE BINARY")
		args = append(args, string(r.Before))
	}

	order := "ASC"
	if r.Reverse {
		order = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT event_id, type, payload, timestamp
		FROM events
		WHERE %s
		ORDER BY event_id COLLATE BINARY %s
	`, strings.Join(where, " AND "), order)
	if r.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, r.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastEventID returns the newest event id of graphID, or "" for an empty
// log.
func (s *Store) LastEventID(ctx context.Context, graphID ir.GraphID) (ir.EventID, error) {
	var id sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(event_id COLLATE BINARY) FROM events WHERE graph_id = ?
	`, string(graphID)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("last event id: %w", err)
	}
	return ir.EventID(id.String), nil
}

// CountEvents returns the number of events stored for graphID.
func (s *Store) CountEvents(ctx context.Context, graphID ir.GraphID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE graph_id = ?
	`, string(graphID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Graphs returns the ids of every graph with at least one event, sorted.
func (s *Store) Graphs(ctx context.Context) ([]ir.GraphID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT graph_id FROM events ORDER BY graph_id COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	ids := []ir.GraphID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan graph id: %w", err)
		}
		ids = append(ids, ir.GraphID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	return ids, nil
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var id, typ, payload, ts string
	if err := rows.Scan(&id, &typ, &payload, &ts); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("event %s: parse timestamp: %w", id, err)
	}
	e, err := event.Decode(ir.EventID(id), event.Type(typ), at, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}
	return e, nil
}
