// Package timetravel reconstructs a graph as it was at a point in its
// event log.
//
// A target is either an instant or a specific event. Both resolve to an
// exclusive upper-bound event id; every event strictly before the bound is
// projected onto a freshly bootstrapped graph. Event ids are UUIDv7, so
// string order is creation order and the bound can be computed without
// reading the log.
package timetravel

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
)

// maxUnixMilli is the largest timestamp a UUIDv7 can carry (48 bits).
const maxUnixMilli = 1<<48 - 1

// Target identifies a point in a graph's history.
type Target struct {
	at    time.Time
	event ir.EventID
}

// AtTime targets the state after every event in the millisecond of t.
func AtTime(t time.Time) Target {
	return Target{at: t}
}

// AtEvent targets the state immediately after event id.
func AtEvent(id ir.EventID) Target {
	return Target{event: id}
}

// String renders the target for logs and CLI output.
func (t Target) String() string {
	if t.event != "" {
		return "event " + string(t.event)
	}
	return "time " + t.at.UTC().Format(time.RFC3339Nano)
}

// BoundFor converts a target into the exclusive upper bound of its replay
// window.
//
// For an event the bound is the id plus one in its last hex digit, with
// carry. For an instant it is the largest possible id in that millisecond:
// the 48-bit time prefix followed by all ones, which sorts after every
// UUIDv7 of the same millisecond (their version nibble is 7).
func BoundFor(t Target) (ir.EventID, error) {
	if t.event != "" {
		return incrementHex(t.event)
	}
	return maxIDAt(t.at), nil
}

func maxIDAt(at time.Time) ir.EventID {
	ms := at.UnixMilli()
	switch {
	case ms < 0:
		return "00000000-0000-0000-0000-000000000000"
	case ms > maxUnixMilli:
		ms = maxUnixMilli
	}
	return ir.EventID(fmt.Sprintf("%08x-%04x-ffff-ffff-ffffffffffff", ms>>16, ms&0xffff))
}

// incrementHex adds one to id read as a base-16 number, skipping '-'
// separators. When every digit carries, a '0' is appended, which is the
// smallest same-prefix string sorting after id.
//
// The id keeps its case, so the bound sorts next to it under byte order.
// Ids with mixed-case letters or non-hex characters are rejected.
func incrementHex(id ir.EventID) (ir.EventID, error) {
	invalid := func(reason string) (ir.EventID, error) {
		return "", ir.NewParseFailure("event id "+string(id), fmt.Errorf("%s", reason))
	}

	var lower, upper, digits bool
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c == '-':
		case c >= '0' && c <= '9':
			digits = true
		case c >= 'a' && c <= 'f':
			digits, lower = true, true
		case c >= 'A' && c <= 'F':
			digits, upper = true, true
		default:
			return invalid(fmt.Sprintf("invalid hex digit %q", c))
		}
	}
	switch {
	case !digits:
		return invalid("no hex digits")
	case lower && upper:
		return invalid("mixed-case hex digits")
	}

	ten, fifteen := byte('a'), byte('f')
	if upper {
		ten, fifteen = 'A', 'F'
	}
	b := []byte(id)
	for i := len(b) - 1; i >= 0; i-- {
		switch c := b[i]; c {
		case '-':
			continue
		case fifteen:
			b[i] = '0'
			continue
		case '9':
			b[i] = ten
		default:
			b[i] = c + 1
		}
		return ir.EventID(b), nil
	}
	return id + "0", nil
}

// EventsAt returns the events visible at target, in id order.
func EventsAt(ctx context.Context, r event.Reader, graphID ir.GraphID, target Target) ([]event.Event, error) {
	bound, err := BoundFor(target)
	if err != nil {
		return nil, err
	}
	events, err := r.GetEvents(ctx, graphID, event.Range{Before: bound})
	if err != nil {
		return nil, fmt.Errorf("read events before %s: %w", bound, err)
	}
	return events, nil
}

// GetGraphAt rebuilds graphID as it was at target.
//
// The result always contains the system nodes; events are projected onto
// a bootstrapped empty graph.
func GetGraphAt(ctx context.Context, r event.Reader, graphID ir.GraphID, target Target) (*graph.Graph, error) {
	events, err := EventsAt(ctx, r, graphID, target)
	if err != nil {
		return nil, err
	}
	g, err := graph.ProjectGraph(events, schema.Bootstrap(graph.New(graphID, "")))
	if err != nil {
		return nil, fmt.Errorf("project %s at %s: %w", graphID, target, err)
	}
	return g, nil
}
