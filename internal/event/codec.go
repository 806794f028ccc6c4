package event

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/roach88/loam/internal/ir"
)

// Marshal encodes an event as a canonical JSON envelope:
//
//	{"event_id":"...","payload":{...},"timestamp":"...","type":"node_created"}
//
// The payload layout depends on the variant. Timestamps are RFC 3339 with
// nanoseconds, in UTC.
func Marshal(e Event) ([]byte, error) {
	var enc payloadEncoder
	if err := e.Accept(&enc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	envelope := map[string]any{
		"event_id":  string(e.EventID()),
		"type":      string(e.Type()),
		"timestamp": FormatTime(e.Timestamp()),
		"payload":   enc.payload,
	}
	return ir.MarshalCanonical(envelope)
}

// MarshalPayload encodes only the variant payload of e.
func MarshalPayload(e Event) ([]byte, error) {
	var enc payloadEncoder
	if err := e.Accept(&enc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	return ir.MarshalCanonical(enc.payload)
}

// FormatTime renders an event timestamp for persistence.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type payloadEncoder struct {
	payload map[string]any
}

func (p *payloadEncoder) VisitNodeCreated(e NodeCreated) error {
	props, err := ir.EncodeProperties(e.Properties)
	if err != nil {
		return err
	}
	p.payload = map[string]any{
		"node_id":    string(e.NodeID),
		"node_type":  string(e.NodeType),
		"properties": props,
	}
	return nil
}

func (p *payloadEncoder) VisitNodePropertiesUpdated(e NodePropertiesUpdated) error {
	changes, err := encodeChanges(e.Changes)
	if err != nil {
		return err
	}
	p.payload = map[string]any{
		"node_id": string(e.NodeID),
		"changes": changes,
		"removed": removedList(e.Removed),
	}
	if e.NewType != "" {
		p.payload["new_type"] = string(e.NewType)
	}
	return nil
}

func (p *payloadEncoder) VisitNodeDeleted(e NodeDeleted) error {
	p.payload = map[string]any{"node_id": string(e.NodeID)}
	return nil
}

func (p *payloadEncoder) VisitEdgeCreated(e EdgeCreated) error {
	props, err := ir.EncodeProperties(e.Properties)
	if err != nil {
		return err
	}
	p.payload = map[string]any{
		"edge_id":    string(e.EdgeID),
		"edge_type":  string(e.EdgeType),
		"source":     string(e.Source),
		"target":     string(e.Target),
		"properties": props,
	}
	return nil
}

func (p *payloadEncoder) VisitEdgePropertiesUpdated(e EdgePropertiesUpdated) error {
	changes, err := encodeChanges(e.Changes)
	if err != nil {
		return err
	}
	p.payload = map[string]any{
		"edge_id": string(e.EdgeID),
		"changes": changes,
		"removed": removedList(e.Removed),
	}
	if e.NewType != "" {
		p.payload["new_type"] = string(e.NewType)
	}
	if e.NewSource != "" {
		p.payload["new_source"] = string(e.NewSource)
	}
	if e.NewTarget != "" {
		p.payload["new_target"] = string(e.NewTarget)
	}
	return nil
}

func (p *payloadEncoder) VisitEdgeDeleted(e EdgeDeleted) error {
	p.payload = map[string]any{"edge_id": string(e.EdgeID)}
	return nil
}

func encodeChanges(changes map[string]PropertyChange) (map[string]any, error) {
	out := make(map[string]any, len(changes))
	for k, c := range changes {
		oldV, err := ir.EncodeValue(c.Old)
		if err != nil {
			return nil, fmt.Errorf("change %q old: %w", k, err)
		}
		newV, err := ir.EncodeValue(c.New)
		if err != nil {
			return nil, fmt.Errorf("change %q new: %w", k, err)
		}
		out[k] = map[string]any{"old": oldV, "new": newV}
	}
	return out, nil
}

func removedList(removed []string) []any {
	sorted := slices.Sorted(slices.Values(removed))
	out := make([]any, len(sorted))
	for i, k := range sorted {
		out[i] = k
	}
	return out
}

// envelope is the decoded outer JSON object.
type envelope struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Unmarshal decodes an envelope produced by Marshal.
// Malformed input fails with ir.ErrCodeParseFailure.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ir.NewParseFailure("event envelope", err)
	}
	at, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	if err != nil {
		return nil, ir.NewParseFailure("event timestamp", err)
	}
	return Decode(ir.EventID(env.EventID), Type(env.Type), at, env.Payload)
}

// Decode rebuilds an event from its separately stored parts.
func Decode(id ir.EventID, typ Type, at time.Time, payload []byte) (Event, error) {
	if id == "" {
		return nil, ir.NewParseFailure("event", fmt.Errorf("missing event_id"))
	}
	raw, err := ir.DecodeJSON(payload)
	if err != nil {
		return nil, ir.NewParseFailure(string(typ)+" payload", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ir.NewParseFailure(string(typ)+" payload", fmt.Errorf("expected object, got %T", raw))
	}

	e, err := decodePayload(Header{ID: id, At: at.UTC()}, typ, payloadReader{obj: obj})
	if err != nil {
		return nil, ir.NewParseFailure(string(typ)+" payload", err)
	}
	return e, nil
}

func decodePayload(h Header, typ Type, r payloadReader) (Event, error) {
	var ev Event
	switch typ {
	case TypeNodeCreated:
		props, err := ir.DecodeProperties(r.obj["properties"])
		if err != nil {
			return nil, err
		}
		ev = NodeCreated{
			Header:     h,
			NodeID:     ir.NodeID(r.str("node_id")),
			NodeType:   ir.TypeID(r.str("node_type")),
			Properties: props,
		}
	case TypeNodePropertiesUpdated:
		changes, removed, err := r.diff()
		if err != nil {
			return nil, err
		}
		ev = NodePropertiesUpdated{
			Header:  h,
			NodeID:  ir.NodeID(r.str("node_id")),
			Changes: changes,
			Removed: removed,
			NewType: ir.TypeID(r.optStr("new_type")),
		}
	case TypeNodeDeleted:
		ev = NodeDeleted{Header: h, NodeID: ir.NodeID(r.str("node_id"))}
	case TypeEdgeCreated:
		props, err := ir.DecodeProperties(r.obj["properties"])
		if err != nil {
			return nil, err
		}
		ev = EdgeCreated{
			Header:     h,
			EdgeID:     ir.EdgeID(r.str("edge_id")),
			EdgeType:   ir.TypeID(r.str("edge_type")),
			Source:     ir.NodeID(r.str("source")),
			Target:     ir.NodeID(r.str("target")),
			Properties: props,
		}
	case TypeEdgePropertiesUpdated:
		changes, removed, err := r.diff()
		if err != nil {
			return nil, err
		}
		ev = EdgePropertiesUpdated{
			Header:    h,
			EdgeID:    ir.EdgeID(r.str("edge_id")),
			Changes:   changes,
			Removed:   removed,
			NewType:   ir.TypeID(r.optStr("new_type")),
			NewSource: ir.NodeID(r.optStr("new_source")),
			NewTarget: ir.NodeID(r.optStr("new_target")),
		}
	case TypeEdgeDeleted:
		ev = EdgeDeleted{Header: h, EdgeID: ir.EdgeID(r.str("edge_id"))}
	default:
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}

// payloadReader extracts typed fields and remembers the first error.
type payloadReader struct {
	obj map[string]any
	err error
}

func (r *payloadReader) str(key string) string {
	s, ok := r.obj[key].(string)
	if (!ok || s == "") && r.err == nil {
		r.err = fmt.Errorf("field %q: expected non-empty string", key)
	}
	return s
}

func (r *payloadReader) optStr(key string) string {
	v, present := r.obj[key]
	if !present || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("field %q: expected string", key)
	}
	return s
}

func (r *payloadReader) diff() (map[string]PropertyChange, []string, error) {
	changes := make(map[string]PropertyChange)
	if raw, ok := r.obj["changes"]; ok && raw != nil {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("changes: expected object")
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			entry, ok := obj[k].(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("change %q: expected object", k)
			}
			oldV, err := ir.DecodeValue(entry["old"])
			if err != nil {
				return nil, nil, fmt.Errorf("change %q old: %w", k, err)
			}
			newV, err := ir.DecodeValue(entry["new"])
			if err != nil {
				return nil, nil, fmt.Errorf("change %q new: %w", k, err)
			}
			changes[k] = PropertyChange{Old: oldV, New: newV}
		}
	}

	removed := make([]string, 0)
	if raw, ok := r.obj["removed"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("removed: expected array")
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, nil, fmt.Errorf("removed[%d]: expected string", i)
			}
			removed = append(removed, s)
		}
	}
	return changes, removed, nil
}
