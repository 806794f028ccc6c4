package event

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/loam/internal/ir"
)

// Range selects a window of a graph's event log. Ids are compared as
// strings, which for UUIDv7 ids is creation order.
type Range struct {
	// After excludes events with id <= After. Empty means from the start.
	After ir.EventID
	// Before excludes events with id >= Before. Empty means to the end.
	Before ir.EventID
	// Limit caps the number of events returned. Zero means no limit.
	Limit int
	// Reverse returns newest first. Limit then keeps the newest events.
	Reverse bool
}

// Contains reports whether id falls inside the window.
func (r Range) Contains(id ir.EventID) bool {
	if r.After != "" && id <= r.After {
		return false
	}
	if r.Before != "" && id >= r.Before {
		return false
	}
	return true
}

// Reader reads events from a log in id order.
type Reader interface {
	GetEvents(ctx context.Context, graphID ir.GraphID, r Range) ([]Event, error)
}

// Appender appends events to a log. Appending an id that is already
// present is a no-op.
type Appender interface {
	AppendEvents(ctx context.Context, graphID ir.GraphID, events []Event) error
}

// Log is a readable and appendable event log.
type Log interface {
	Reader
	Appender
}

// MemoryLog is an in-process Log. It is safe for concurrent use.
type MemoryLog struct {
	mu     sync.RWMutex
	graphs map[ir.GraphID][]Event
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{graphs: make(map[ir.GraphID][]Event)}
}

// AppendEvents inserts events keeping the log sorted by id.
func (m *MemoryLog) AppendEvents(ctx context.Context, graphID ir.GraphID, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.graphs[graphID]
	for _, e := range events {
		i, found := slices.BinarySearchFunc(log, e.EventID(), func(x Event, id ir.EventID) int {
			switch {
			case x.EventID() < id:
				return -1
			case x.EventID() > id:
				return 1
			}
			return 0
		})
		if found {
			continue
		}
		log = slices.Insert(log, i, e)
	}
	m.graphs[graphID] = log
	return nil
}

// GetEvents returns the events of graphID inside r.
func (m *MemoryLog) GetEvents(ctx context.Context, graphID ir.GraphID, r Range) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range m.graphs[graphID] {
		if r.Contains(e.EventID()) {
			out = append(out, e)
		}
	}
	if r.Reverse {
		slices.Reverse(out)
	}
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	return out, nil
}

// Len returns the number of events stored for graphID.
func (m *MemoryLog) Len(graphID ir.GraphID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.graphs[graphID])
}
