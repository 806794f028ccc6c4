// Package store provides SQLite-backed durable storage for graph event
// logs and graph snapshots.
//
// # Event log
//
// Events are append-only rows keyed by (graph_id, event_id):
//   - Appends use ON CONFLICT DO NOTHING, so re-appending an event is a no-op
//   - Reads order by event_id COLLATE BINARY, which for UUIDv7 ids is
//     creation order
//   - Payloads are canonical JSON, so the same event always stores the
//     same bytes
//
// # Snapshots
//
// One snapshot per graph, stored zstd-compressed with a BLAKE3 checksum of
// the uncompressed blob (see package snapshot).
//
// # Connections
//
// Pragmas travel in the DSN so every pooled connection gets them: WAL
// journaling, synchronous=NORMAL, a 5s busy timeout and foreign keys.
// Schema upgrades are numbered migrations tracked in PRAGMA user_version.
package store
