package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Kind names the runtime shape of a Value.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindInstant  Kind = "instant"
	KindDate     Kind = "plain-date"
	KindNodeRef  Kind = "node-ref"
	KindGraphRef Kind = "graph-ref"
	KindNull     Kind = "null"
	KindList     Kind = "list"
)

// ValidKinds lists every kind a property definition may declare.
var ValidKinds = map[Kind]bool{
	KindText:     true,
	KindNumber:   true,
	KindBoolean:  true,
	KindInstant:  true,
	KindDate:     true,
	KindNodeRef:  true,
	KindGraphRef: true,
	KindNull:     true,
	KindList:     true,
}

// Value is a sealed interface representing a property value.
// Only Text, Number, Bool, Instant, PlainDate, NodeRef, GraphRef, Null and
// List implement it.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Text is a string value.
type Text string

func (Text) Kind() Kind { return KindText }
func (Text) value()     {}

// Number is a numeric value.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBoolean }
func (Bool) value()     {}

// Instant is a point in time.
type Instant struct {
	Time time.Time
}

func (Instant) Kind() Kind { return KindInstant }
func (Instant) value()     {}

// NewInstant wraps t, normalized to UTC.
func NewInstant(t time.Time) Instant {
	return Instant{Time: t.UTC()}
}

// PlainDate is a calendar date without a time zone.
type PlainDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (PlainDate) Kind() Kind { return KindDate }
func (PlainDate) value()     {}

// String formats the date as YYYY-MM-DD.
func (d PlainDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (PlainDate, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return PlainDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return PlainDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// NodeRef references a node in the same graph.
type NodeRef struct {
	ID NodeID
}

func (NodeRef) Kind() Kind { return KindNodeRef }
func (NodeRef) value()     {}

// GraphRef references a node in another graph.
type GraphRef struct {
	Graph GraphID
	Node  NodeID
}

func (GraphRef) Kind() Kind { return KindGraphRef }
func (GraphRef) value()     {}

// Null is the explicit absence of a value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// List is a flat list of scalar values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// NewList builds a List, rejecting nested lists.
func NewList(vals ...Value) (List, error) {
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("list[%d]: nil value", i)
		}
		if _, nested := v.(List); nested {
			return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
		}
	}
	return List(slices.Clone(vals)), nil
}

// TextList builds a List of Text values.
func TextList(items ...string) List {
	l := make(List, len(items))
	for i, s := range items {
		l[i] = Text(s)
	}
	return l
}

// PropertyMap maps property names to values. Key order is irrelevant.
type PropertyMap map[string]Value

// Clone returns a copy of the map. Values are immutable and shared.
func (m PropertyMap) Clone() PropertyMap {
	if m == nil {
		return PropertyMap{}
	}
	out := make(PropertyMap, len(m))
	for k, v := range m {
		if l, ok := v.(List); ok {
			v = slices.Clone(l)
		}
		out[k] = v
	}
	return out
}

// SortedKeys returns the property names in ascending order.
func (m PropertyMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Equal reports whether two property maps hold equal values for the same keys.
func (m PropertyMap) Equal(other PropertyMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b are the same value. A nil Value equals Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch av := a.(type) {
	case Instant:
		bv, ok := b.(Instant)
		return ok && av.Time.Equal(bv.Time)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Unwrap converts a Value to its underlying Go scalar or list.
//
//	Text      -> string
//	Number    -> float64
//	Bool      -> bool
//	Instant   -> time.Time
//	PlainDate -> string (YYYY-MM-DD)
//	NodeRef   -> string (node id)
//	GraphRef  -> string (graph/node)
//	Null      -> nil
//	List      -> []any
func Unwrap(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Text:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Instant:
		return val.Time
	case PlainDate:
		return val.String()
	case NodeRef:
		return string(val.ID)
	case GraphRef:
		return string(val.Graph) + "/" + string(val.Node)
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Unwrap(item)
		}
		return out
	default:
		return nil
	}
}

// FromGo converts a plain Go value to a Value.
// Accepts string, bool, integer and float types, json.Number, time.Time,
// nil, []any of scalars, and Values.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return Number(f), nil
	case time.Time:
		return NewInstant(val), nil
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			if _, nested := item.([]any); nested {
				return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			iv, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = iv
		}
		return NewList(items...)
	case []string:
		return TextList(val...), nil
	default:
		return nil, fmt.Errorf("unsupported property value type: %T", v)
	}
}

// Tagged JSON object keys for non-primitive scalars.
const (
	tagInstant = "$instant"
	tagDate    = "$date"
	tagRef     = "$ref"
	tagGraph   = "$graph"
	tagNode    = "$node"
)

// EncodeValue converts a Value to its JSON tree form (string, float64,
// bool, nil, []any or map[string]any) suitable for MarshalCanonical.
func EncodeValue(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case Text:
		return string(val), nil
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("number %v is not representable in JSON", f)
		}
		return f, nil
	case Bool:
		return bool(val), nil
	case Instant:
		return map[string]any{tagInstant: val.Time.UTC().Format(time.RFC3339Nano)}, nil
	case PlainDate:
		return map[string]any{tagDate: val.String()}, nil
	case NodeRef:
		return map[string]any{tagRef: string(val.ID)}, nil
	case GraphRef:
		return map[string]any{tagGraph: string(val.Graph), tagNode: string(val.Node)}, nil
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			if _, nested := item.(List); nested {
				return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			enc, err := EncodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// DecodeValue converts a JSON tree (as produced by a json.Decoder with
// UseNumber, or by EncodeValue) back into a Value.
func DecodeValue(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return Number(f), nil
	case []any:
		items := make(List, len(val))
		for i, item := range val {
			if _, nested := item.([]any); nested {
				return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			iv, err := DecodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = iv
		}
		return items, nil
	case map[string]any:
		return decodeTagged(val)
	default:
		return nil, fmt.Errorf("unsupported JSON value: %T", raw)
	}
}

func decodeTagged(obj map[string]any) (Value, error) {
	str := func(key string) (string, error) {
		s, ok := obj[key].(string)
		if !ok {
			return "", fmt.Errorf("tagged value %s: expected string", key)
		}
		return s, nil
	}

	switch {
	case hasKey(obj, tagInstant):
		s, err := str(tagInstant)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("instant %q: %w", s, err)
		}
		return NewInstant(t), nil
	case hasKey(obj, tagDate):
		s, err := str(tagDate)
		if err != nil {
			return nil, err
		}
		return ParseDate(s)
	case hasKey(obj, tagRef):
		s, err := str(tagRef)
		if err != nil {
			return nil, err
		}
		return NodeRef{ID: NodeID(s)}, nil
	case hasKey(obj, tagGraph):
		g, err := str(tagGraph)
		if err != nil {
			return nil, err
		}
		n, err := str(tagNode)
		if err != nil {
			return nil, err
		}
		return GraphRef{Graph: GraphID(g), Node: NodeID(n)}, nil
	default:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("objects are not property values (keys: %s)", strings.Join(keys, ","))
	}
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

// MarshalValue encodes a Value as canonical JSON.
func MarshalValue(v Value) ([]byte, error) {
	enc, err := EncodeValue(v)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(enc)
}

// UnmarshalValue decodes JSON produced by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return DecodeValue(raw)
}

// EncodeProperties converts a PropertyMap to its JSON tree form.
func EncodeProperties(m PropertyMap) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		enc, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

// DecodeProperties converts a JSON object tree into a PropertyMap.
func DecodeProperties(raw any) (PropertyMap, error) {
	if raw == nil {
		return PropertyMap{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("properties: expected object, got %T", raw)
	}
	out := make(PropertyMap, len(obj))
	for k, item := range obj {
		v, err := DecodeValue(item)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler with canonical key ordering.
func (m PropertyMap) MarshalJSON() ([]byte, error) {
	enc, err := EncodeProperties(m)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(enc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	raw, err := decodeJSON(data)
	if err != nil {
		return err
	}
	props, err := DecodeProperties(raw)
	if err != nil {
		return err
	}
	*m = props
	return nil
}

// decodeJSON decodes into a generic tree, preserving numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DecodeJSON decodes data into a generic JSON tree with json.Number numbers.
func DecodeJSON(data []byte) (any, error) {
	return decodeJSON(data)
}
