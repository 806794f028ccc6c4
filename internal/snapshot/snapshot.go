// Package snapshot defines the snapshot store boundary and the blob
// envelope shared by its implementations.
//
// Stores treat snapshot contents as opaque bytes. Before a blob is written
// it is zstd-compressed and a BLAKE3 checksum of the uncompressed bytes is
// recorded alongside it; Load verifies the checksum and fails with
// ErrChecksumMismatch on corruption.
package snapshot

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/roach88/loam/internal/ir"
)

// ErrChecksumMismatch reports a stored blob whose contents no longer hash
// to the recorded checksum.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// Meta describes a stored snapshot.
type Meta struct {
	GraphID ir.GraphID `json:"graph_id"`
	// EventID is the last event folded into the snapshot. Replay resumes
	// after it.
	EventID  ir.EventID `json:"event_id,omitempty"`
	Nodes    int        `json:"nodes"`
	Edges    int        `json:"edges"`
	Size     int        `json:"size"`
	Checksum string     `json:"checksum"`
	SavedAt  time.Time  `json:"saved_at"`
}

// Store persists one snapshot per graph.
type Store interface {
	// Save replaces the snapshot of graphID. Size and Checksum in meta are
	// computed by the store.
	Save(ctx context.Context, graphID ir.GraphID, blob []byte, meta Meta) error
	// Load returns the snapshot of graphID. ok is false when none exists.
	Load(ctx context.Context, graphID ir.GraphID) (blob []byte, meta Meta, ok bool, err error)
	// Delete removes the snapshot of graphID. Deleting a missing snapshot
	// is a no-op.
	Delete(ctx context.Context, graphID ir.GraphID) error
	// List returns metadata for every stored snapshot ordered by graph id.
	List(ctx context.Context) ([]Meta, error)
}

// Checksum returns the hex BLAKE3-256 digest of raw.
func Checksum(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Pack compresses raw and fills meta's Size and Checksum.
func Pack(raw []byte, meta Meta) ([]byte, Meta, error) {
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(raw); err != nil {
		encoder.Close()
		return nil, Meta{}, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, Meta{}, fmt.Errorf("closing encoder: %w", err)
	}

	meta.Size = len(raw)
	meta.Checksum = Checksum(raw)
	return compressed.Bytes(), meta, nil
}

// Unpack decompresses packed and verifies it against meta.
func Unpack(packed []byte, meta Meta) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	if len(raw) != meta.Size || Checksum(raw) != meta.Checksum {
		return nil, fmt.Errorf("graph %s: %w", meta.GraphID, ErrChecksumMismatch)
	}
	return raw, nil
}
