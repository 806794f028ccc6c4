package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/ir"
)

func TestRangeContains(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		id   ir.EventID
		want bool
	}{
		{"open", Range{}, "evt-c", true},
		{"after is exclusive", Range{After: "evt-c"}, "evt-c", false},
		{"after", Range{After: "evt-b"}, "evt-c", true},
		{"before is exclusive", Range{Before: "evt-c"}, "evt-c", false},
		{"before", Range{Before: "evt-d"}, "evt-c", true},
		{"window", Range{After: "evt-a", Before: "evt-c"}, "evt-b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Contains(tt.id))
		})
	}
}

func TestMemoryLog(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	events := sampleEvents()

	// Appended out of order and twice; the log stays sorted and unique.
	require.NoError(t, log.AppendEvents(ctx, "g", []Event{events[3], events[1], events[5]}))
	require.NoError(t, log.AppendEvents(ctx, "g", events))
	assert.Equal(t, 6, log.Len("g"))
	assert.Equal(t, 0, log.Len("other"))

	all, err := log.GetEvents(ctx, "g", Range{})
	require.NoError(t, err)
	assert.Equal(t, IDs(events), IDs(all))

	window, err := log.GetEvents(ctx, "g", Range{After: "evt-a", Before: "evt-e"})
	require.NoError(t, err)
	assert.Equal(t, []ir.EventID{"evt-b", "evt-c", "evt-d"}, IDs(window))

	limited, err := log.GetEvents(ctx, "g", Range{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []ir.EventID{"evt-a", "evt-b"}, IDs(limited))

	newest, err := log.GetEvents(ctx, "g", Range{Limit: 2, Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []ir.EventID{"evt-f", "evt-e"}, IDs(newest))
}

func TestMemoryLogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := NewMemoryLog()
	assert.ErrorIs(t, log.AppendEvents(ctx, "g", sampleEvents()), context.Canceled)
	_, err := log.GetEvents(ctx, "g", Range{})
	assert.ErrorIs(t, err, context.Canceled)
}
