package engine

import (
	"sync"
	"time"
)

// Clock stamps events with wall-clock time that never goes backwards.
//
// Event ids are UUIDv7 derived from the stamp, so a clock step back on the
// host would otherwise produce events that sort before their causes.
// When the source returns an earlier instant than the last stamp, Clock
// repeats the last stamp instead.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	mu     sync.Mutex
	source func() time.Time
	last   time.Time
}

// NewClock creates a clock reading time.Now.
func NewClock() *Clock {
	return NewClockFrom(time.Now)
}

// NewClockFrom creates a clock reading source.
func NewClockFrom(source func() time.Time) *Clock {
	return &Clock{source: source}
}

// Now returns the next stamp, in UTC.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.source().UTC()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// Last returns the most recent stamp without advancing.
func (c *Clock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
