package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loam/internal/ir"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleEvents() []Event {
	h := func(n int) Header {
		return Header{ID: ir.EventID("evt-" + string(rune('a'+n))), At: t0.Add(time.Duration(n) * time.Millisecond)}
	}
	return []Event{
		NodeCreated{Header: h(0), NodeID: "a", NodeType: "person", Properties: ir.PropertyMap{
			"name": ir.Text("Alice"),
			"born": ir.PlainDate{Year: 1990, Month: time.May, Day: 1},
		}},
		NodePropertiesUpdated{Header: h(1), NodeID: "a",
			Changes: map[string]PropertyChange{"name": {Old: ir.Text("Alice"), New: ir.Text("Alicia")}},
			Removed: []string{"born"},
			NewType: "employee",
		},
		NodeDeleted{Header: h(2), NodeID: "a"},
		EdgeCreated{Header: h(3), EdgeID: "e", EdgeType: "knows", Source: "a", Target: "b",
			Properties: ir.PropertyMap{"since": ir.Number(2020)}},
		EdgePropertiesUpdated{Header: h(4), EdgeID: "e",
			Changes:   map[string]PropertyChange{"since": {Old: ir.Number(2020), New: ir.Number(2021)}},
			Removed:   []string{},
			NewTarget: "c",
		},
		EdgeDeleted{Header: h(5), EdgeID: "e"},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, e := range sampleEvents() {
		t.Run(string(e.Type()), func(t *testing.T) {
			data, err := Marshal(e)
			require.NoError(t, err)

			decoded, err := Unmarshal(data)
			require.NoError(t, err)

			again, err := Marshal(decoded)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
			assert.Equal(t, e.Type(), decoded.Type())
			assert.Equal(t, e.EventID(), decoded.EventID())
			assert.True(t, e.Timestamp().Equal(decoded.Timestamp()))
		})
	}
}

func TestMarshalEnvelopeShape(t *testing.T) {
	e := NodeDeleted{Header: Header{ID: "evt-1", At: t0}, NodeID: "a"}
	data, err := Marshal(e)
	require.NoError(t, err)
	assert.Equal(t,
		`{"event_id":"evt-1","payload":{"node_id":"a"},"timestamp":"2024-01-01T12:00:00Z","type":"node_deleted"}`,
		string(data))
}

func TestUnmarshalParseFailure(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"bad timestamp", `{"event_id":"x","type":"node_deleted","timestamp":"yesterday","payload":{"node_id":"a"}}`},
		{"unknown type", `{"event_id":"x","type":"node_moved","timestamp":"2024-01-01T00:00:00Z","payload":{}}`},
		{"missing id field", `{"event_id":"x","type":"node_deleted","timestamp":"2024-01-01T00:00:00Z","payload":{}}`},
		{"missing event id", `{"type":"node_deleted","timestamp":"2024-01-01T00:00:00Z","payload":{"node_id":"a"}}`},
		{"bad change", `{"event_id":"x","type":"node_properties_updated","timestamp":"2024-01-01T00:00:00Z","payload":{"node_id":"a","changes":{"k":1}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, ir.IsCode(err, ir.ErrCodeParseFailure), "got %v", err)
		})
	}
}

func TestDiff(t *testing.T) {
	prev := ir.PropertyMap{"a": ir.Text("1"), "b": ir.Number(2), "z": ir.Bool(true), "c": ir.Null{}}
	next := ir.PropertyMap{"a": ir.Text("1"), "b": ir.Number(3), "d": ir.Text("new")}

	changes, removed := Diff(prev, next)

	assert.Equal(t, map[string]PropertyChange{
		"b": {Old: ir.Number(2), New: ir.Number(3)},
		"d": {Old: ir.Null{}, New: ir.Text("new")},
	}, changes)
	assert.Equal(t, []string{"c", "z"}, removed)
}

func TestMergeIsThreeWay(t *testing.T) {
	current := ir.PropertyMap{"a": ir.Text("1"), "b": ir.Number(2), "keep": ir.Text("x")}
	changes := map[string]PropertyChange{"b": {Old: ir.Number(2), New: ir.Number(3)}}

	merged := Merge(current, changes, []string{"a"})

	assert.Equal(t, ir.PropertyMap{"b": ir.Number(3), "keep": ir.Text("x")}, merged)
	assert.Equal(t, ir.Text("1"), current["a"], "input map must not change")
}

type countingVisitor struct {
	counts map[Type]int
}

func (c *countingVisitor) VisitNodeCreated(NodeCreated) error {
	c.counts[TypeNodeCreated]++
	return nil
}

func (c *countingVisitor) VisitNodePropertiesUpdated(NodePropertiesUpdated) error {
	c.counts[TypeNodePropertiesUpdated]++
	return nil
}

func (c *countingVisitor) VisitNodeDeleted(NodeDeleted) error {
	c.counts[TypeNodeDeleted]++
	return nil
}

func (c *countingVisitor) VisitEdgeCreated(EdgeCreated) error {
	c.counts[TypeEdgeCreated]++
	return nil
}

func (c *countingVisitor) VisitEdgePropertiesUpdated(EdgePropertiesUpdated) error {
	c.counts[TypeEdgePropertiesUpdated]++
	return nil
}

func (c *countingVisitor) VisitEdgeDeleted(EdgeDeleted) error {
	c.counts[TypeEdgeDeleted]++
	return nil
}

func TestAcceptDispatchesEveryVariant(t *testing.T) {
	v := &countingVisitor{counts: map[Type]int{}}
	for _, e := range sampleEvents() {
		require.NoError(t, e.Accept(v))
	}
	for _, typ := range []Type{
		TypeNodeCreated, TypeNodePropertiesUpdated, TypeNodeDeleted,
		TypeEdgeCreated, TypeEdgePropertiesUpdated, TypeEdgeDeleted,
	} {
		assert.Equal(t, 1, v.counts[typ], typ)
	}
}

func TestIDs(t *testing.T) {
	ids := IDs(sampleEvents())
	assert.Len(t, ids, 6)
	assert.Equal(t, ir.EventID("evt-a"), ids[0])
}

func TestSubject(t *testing.T) {
	var got []string
	for _, e := range sampleEvents() {
		got = append(got, Subject(e))
	}
	assert.Equal(t, []string{"a", "a", "a", "e", "e", "e"}, got)
}
