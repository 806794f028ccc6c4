package testutil

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SequentialUUIDv7 generates UUIDv7 ids without randomness.
//
// The time prefix comes from the requested instant and the remaining bits
// hold a global sequence number, so ids are reproducible across runs and
// still sort by time. The same scenario with the same generator produces
// byte-identical event logs.
//
// Thread-safety: SequentialUUIDv7 is safe for concurrent use.
type SequentialUUIDv7 struct {
	mu  sync.Mutex
	seq uint64
}

// NewSequentialUUIDv7 creates a generator whose first id has sequence 1.
func NewSequentialUUIDv7() *SequentialUUIDv7 {
	return &SequentialUUIDv7{}
}

// Generate returns the next id stamped with the millisecond of at.
//
// Implements ir.IDGenerator.
func (g *SequentialUUIDv7) Generate(at time.Time) string {
	g.mu.Lock()
	g.seq++
	seq := g.seq
	g.mu.Unlock()

	var b [16]byte
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.UnixMilli()))
	copy(b[0:6], ts[2:8])
	b[6] = 0x70
	binary.BigEndian.PutUint64(b[8:], seq)
	b[8] = 0x80 | (b[8] & 0x3f)
	return uuid.UUID(b).String()
}

// Reset restarts the sequence.
func (g *SequentialUUIDv7) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
