package query

import (
	"fmt"

	"github.com/roach88/loam/internal/ir"
)

// Step kind names used in serialized queries.
const (
	kindNodeScan  = "node-scan"
	kindEdgeScan  = "edge-scan"
	kindFilter    = "filter"
	kindTraversal = "traversal"
	kindSort      = "sort"
	kindLimit     = "limit"
)

// Marshal serializes q as canonical JSON:
//
//	{"steps":[{"kind":"node-scan","type":"task"},{"kind":"limit","n":5}]}
func Marshal(q Query) ([]byte, error) {
	tree, err := Encode(q)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(tree)
}

// Encode converts q to its JSON tree form.
func Encode(q Query) (map[string]any, error) {
	steps := make([]any, 0, len(q.Steps))
	for i, s := range q.Steps {
		var enc stepEncoder
		if err := s.Accept(&enc); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, enc.out)
	}
	return map[string]any{"steps": steps}, nil
}

type stepEncoder struct {
	out map[string]any
}

func (e *stepEncoder) VisitNodeScan(s NodeScan) error {
	e.out = map[string]any{"kind": kindNodeScan}
	if s.Type != "" {
		e.out["type"] = string(s.Type)
	}
	return nil
}

func (e *stepEncoder) VisitEdgeScan(s EdgeScan) error {
	e.out = map[string]any{"kind": kindEdgeScan}
	if s.Type != "" {
		e.out["type"] = string(s.Type)
	}
	return nil
}

func (e *stepEncoder) VisitFilter(s Filter) error {
	e.out = map[string]any{
		"kind":     kindFilter,
		"property": s.Property,
		"operator": string(s.Operator),
	}
	if s.Value != nil {
		v, err := ir.EncodeValue(s.Value)
		if err != nil {
			return err
		}
		e.out["value"] = v
	}
	return nil
}

func (e *stepEncoder) VisitTraversal(s Traversal) error {
	e.out = map[string]any{"kind": kindTraversal, "direction": string(s.Direction)}
	if s.EdgeType != "" {
		e.out["edgeType"] = string(s.EdgeType)
	}
	return nil
}

func (e *stepEncoder) VisitSort(s Sort) error {
	dir := s.Direction
	if dir == "" {
		dir = Asc
	}
	e.out = map[string]any{"kind": kindSort, "property": s.Property, "direction": string(dir)}
	return nil
}

func (e *stepEncoder) VisitLimit(s Limit) error {
	e.out = map[string]any{"kind": kindLimit, "n": s.N}
	return nil
}

// Unmarshal parses serialized query text.
// Malformed text fails with ir.ErrCodeParseFailure.
func Unmarshal(data []byte) (Query, error) {
	raw, err := ir.DecodeJSON(data)
	if err != nil {
		return Query{}, ir.NewParseFailure("query", err)
	}
	return Decode(raw)
}

// Decode builds a Query from its JSON tree form.
func Decode(raw any) (Query, error) {
	q, err := decode(raw)
	if err != nil {
		return Query{}, ir.NewParseFailure("query", err)
	}
	return q, nil
}

func decode(raw any) (Query, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Query{}, fmt.Errorf("expected object, got %T", raw)
	}
	list, ok := obj["steps"].([]any)
	if !ok {
		return Query{}, fmt.Errorf("steps: expected array")
	}

	steps := make([]Step, 0, len(list))
	for i, item := range list {
		s, err := decodeStep(item)
		if err != nil {
			return Query{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps = append(steps, s)
	}
	return Query{Steps: steps}, nil
}

func decodeStep(raw any) (Step, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", raw)
	}
	str := func(key string, required bool) (string, error) {
		v, present := obj[key]
		if !present || v == nil {
			if required {
				return "", fmt.Errorf("%s is required", key)
			}
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%s: expected string, got %T", key, v)
		}
		return s, nil
	}

	kind, err := str("kind", true)
	if err != nil {
		return nil, err
	}

	switch kind {
	case kindNodeScan, kindEdgeScan:
		t, err := str("type", false)
		if err != nil {
			return nil, err
		}
		if kind == kindNodeScan {
			return NodeScan{Type: ir.TypeID(t)}, nil
		}
		return EdgeScan{Type: ir.TypeID(t)}, nil

	case kindFilter:
		prop, err := str("property", true)
		if err != nil {
			return nil, err
		}
		op, err := str("operator", true)
		if err != nil {
			return nil, err
		}
		if !validOperators[Operator(op)] {
			return nil, fmt.Errorf("unknown operator %q", op)
		}
		f := Filter{Property: prop, Operator: Operator(op)}
		if rv, present := obj["value"]; present {
			v, err := ir.DecodeValue(rv)
			if err != nil {
				return nil, fmt.Errorf("value: %w", err)
			}
			f.Value = v
		}
		return f, nil

	case kindTraversal:
		et, err := str("edgeType", false)
		if err != nil {
			return nil, err
		}
		dir, err := str("direction", false)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = string(Out)
		}
		switch Direction(dir) {
		case Out, In, Both:
		default:
			return nil, fmt.Errorf("unknown direction %q", dir)
		}
		return Traversal{EdgeType: ir.TypeID(et), Direction: Direction(dir)}, nil

	case kindSort:
		prop, err := str("property", true)
		if err != nil {
			return nil, err
		}
		dir, err := str("direction", false)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = string(Asc)
		}
		if SortDirection(dir) != Asc && SortDirection(dir) != Desc {
			return nil, fmt.Errorf("unknown sort direction %q", dir)
		}
		return Sort{Property: prop, Direction: SortDirection(dir)}, nil

	case kindLimit:
		n, err := intField(obj["n"])
		if err != nil {
			return nil, fmt.Errorf("n: %w", err)
		}
		return Limit{N: n}, nil

	default:
		return nil, fmt.Errorf("unknown step kind %q", kind)
	}
}

func intField(raw any) (int, error) {
	v, err := ir.DecodeValue(raw)
	if err != nil {
		return 0, err
	}
	num, ok := v.(ir.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %s", v.Kind())
	}
	n := int(num)
	if float64(n) != float64(num) || n < 0 {
		return 0, fmt.Errorf("expected non-negative integer, got %v", float64(num))
	}
	return n, nil
}

// ParseText parses the textual query language. The language is not
// implemented; every input fails with ir.ErrCodeParseFailure.
func ParseText(text string) (Query, error) {
	return Query{}, ir.NewParseFailure("query text", fmt.Errorf("textual query language is not supported"))
}
