package ir

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces unique, time-sortable identifiers.
type IDGenerator interface {
	// Generate returns a new id whose time prefix reflects at.
	Generate(at time.Time) string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Ids from one generator are strictly increasing: within one millisecond the
// 12-bit rand_a field is used as a counter, and when the counter overflows
// or the clock goes backwards the timestamp is advanced past the last one
// issued.
//
// Thread-safety: UUIDv7Generator is safe for concurrent use.
type UUIDv7Generator struct {
	mu      sync.Mutex
	lastMs  int64
	counter uint16
}

// NewUUIDv7Generator creates a generator.
func NewUUIDv7Generator() *UUIDv7Generator {
	return &UUIDv7Generator{}
}

// Generate returns a hyphenated UUIDv7 string for the millisecond of at.
//
// Panics if the system random source fails.
func (g *UUIDv7Generator) Generate(at time.Time) string {
	g.mu.Lock()
	ms := at.UnixMilli()
	if ms < 0 {
		ms = 0
	}
	switch {
	case ms > g.lastMs:
		g.lastMs = ms
		g.counter = 0
	case g.counter < 0x0fff:
		g.counter++
	default:
		g.lastMs++
		g.counter = 0
	}
	ms, counter := g.lastMs, g.counter
	g.mu.Unlock()

	var b [16]byte
	if _, err := rand.Read(b[8:]); err != nil {
		panic(fmt.Sprintf("uuidv7: read random: %v", err))
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(ms))
	copy(b[0:6], ts[2:8])
	b[6] = 0x70 | byte(counter>>8)
	b[7] = byte(counter)
	b[8] = 0x80 | (b[8] & 0x3f)
	return uuid.UUID(b).String()
}

// Resume advances the generator past last, an id issued earlier, possibly
// by another process, so that ids generated afterwards sort after it. Ids
// that are not UUIDv7, or that sort before the generator's state, are
// ignored.
func (g *UUIDv7Generator) Resume(last string) {
	u, err := uuid.Parse(last)
	if err != nil || u.Version() != 7 {
		return
	}
	var ts [8]byte
	copy(ts[2:8], u[0:6])
	ms := int64(binary.BigEndian.Uint64(ts[:]))
	counter := uint16(u[6]&0x0f)<<8 | uint16(u[7])

	g.mu.Lock()
	defer g.mu.Unlock()
	if ms > g.lastMs || (ms == g.lastMs && counter > g.counter) {
		g.lastMs = ms
		g.counter = counter
	}
}

// NewNodeID returns a fresh UUIDv7 node id stamped with the current time.
func NewNodeID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()).String())
}

// EventIDTime extracts the millisecond timestamp embedded in a UUIDv7 id.
func EventIDTime(id EventID) (time.Time, error) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event id %q: %w", id, err)
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("event id %q: version %d is not 7", id, u.Version())
	}
	var ts [8]byte
	copy(ts[2:8], u[0:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(ts[:]))).UTC(), nil
}
