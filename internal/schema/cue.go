package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// TypeSet holds type definitions loaded from CUE.
type TypeSet struct {
	NodeTypes []NodeTypeDefinition
	EdgeTypes []EdgeTypeDefinition
}

// Nodes returns the definition nodes for every type, node types first.
func (ts *TypeSet) Nodes() ([]graph.Node, error) {
	out := make([]graph.Node, 0, len(ts.NodeTypes)+len(ts.EdgeTypes))
	for _, def := range ts.NodeTypes {
		n, err := NodeTypeNode(def)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	for _, def := range ts.EdgeTypes {
		n, err := EdgeTypeNode(def)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// CompileError reports a malformed CUE type definition.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileTypes reads node_types and edge_types structs from a CUE value:
//
//	node_types: person: {
//		name: "Person"
//		properties: {
//			name: {kind: "text", required: true}
//			age:  {kind: "number"}
//		}
//		valid_outgoing_edges: ["knows"]
//	}
//	edge_types: knows: {
//		name: "Knows"
//		source_types: ["person"]
//		target_types: ["person"]
//	}
//
// The struct label is the TypeID. Property order follows field order.
func CompileTypes(v cue.Value) (*TypeSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	ts := &TypeSet{
		NodeTypes: []NodeTypeDefinition{},
		EdgeTypes: []EdgeTypeDefinition{},
	}

	if nodes := v.LookupPath(cue.ParsePath("node_types")); nodes.Exists() {
		iter, err := nodes.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			def, err := compileNodeType(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			ts.NodeTypes = append(ts.NodeTypes, def)
		}
	}

	if edges := v.LookupPath(cue.ParsePath("edge_types")); edges.Exists() {
		iter, err := edges.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			def, err := compileEdgeType(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			ts.EdgeTypes = append(ts.EdgeTypes, def)
		}
	}
	return ts, nil
}

func compileNodeType(label string, v cue.Value) (NodeTypeDefinition, error) {
	field := "node_types." + label
	name, err := optString(v, "name", label)
	if err != nil {
		return NodeTypeDefinition{}, err
	}
	desc, err := optString(v, "description", "")
	if err != nil {
		return NodeTypeDefinition{}, err
	}
	props, err := compileProperties(field, v)
	if err != nil {
		return NodeTypeDefinition{}, err
	}
	out, err := typeIDs(v, "valid_outgoing_edges")
	if err != nil {
		return NodeTypeDefinition{}, err
	}
	in, err := typeIDs(v, "valid_incoming_edges")
	if err != nil {
		return NodeTypeDefinition{}, err
	}
	return NodeTypeDefinition{
		ID:                 ir.TypeID(label),
		Name:               name,
		Description:        desc,
		Properties:         props,
		ValidOutgoingEdges: out,
		ValidIncomingEdges: in,
	}, nil
}

func compileEdgeType(label string, v cue.Value) (EdgeTypeDefinition, error) {
	field := "edge_types." + label
	name, err := optString(v, "name", label)
	if err != nil {
		return EdgeTypeDefinition{}, err
	}
	desc, err := optString(v, "description", "")
	if err != nil {
		return EdgeTypeDefinition{}, err
	}
	inverse, err := optString(v, "inverse", "")
	if err != nil {
		return EdgeTypeDefinition{}, err
	}
	props, err := compileProperties(field, v)
	if err != nil {
		return EdgeTypeDefinition{}, err
	}
	sources, err := typeIDs(v, "source_types")
	if err != nil {
		return EdgeTypeDefinition{}, err
	}
	targets, err := typeIDs(v, "target_types")
	if err != nil {
		return EdgeTypeDefinition{}, err
	}

	transitive := false
	if tv := v.LookupPath(cue.ParsePath("transitive")); tv.Exists() {
		transitive, err = tv.Bool()
		if err != nil {
			return EdgeTypeDefinition{}, formatCUEError(err)
		}
	}

	return EdgeTypeDefinition{
		ID:          ir.TypeID(label),
		Name:        name,
		Description: desc,
		Properties:  props,
		SourceTypes: sources,
		TargetTypes: targets,
		Transitive:  transitive,
		Inverse:     ir.TypeID(inverse),
	}, nil
}

func compileProperties(field string, v cue.Value) ([]PropertyDefinition, error) {
	defs := make([]PropertyDefinition, 0)
	pv := v.LookupPath(cue.ParsePath("properties"))
	if !pv.Exists() {
		return defs, nil
	}
	iter, err := pv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		prop := iter.Value()

		kindStr, err := optString(prop, "kind", "")
		if err != nil {
			return nil, err
		}
		kind := ir.Kind(kindStr)
		if !ir.ValidKinds[kind] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.properties.%s.kind", field, name),
				Message: fmt.Sprintf("unknown kind %q", kindStr),
				Pos:     prop.Pos(),
			}
		}

		required := false
		if rv := prop.LookupPath(cue.ParsePath("required")); rv.Exists() {
			required, err = rv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}
		desc, err := optString(prop, "description", "")
		if err != nil {
			return nil, err
		}
		defs = append(defs, PropertyDefinition{Name: name, Kind: kind, Required: required, Description: desc})
	}
	return defs, nil
}

func optString(v cue.Value, path, fallback string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return fallback, nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func typeIDs(v cue.Value, path string) ([]ir.TypeID, error) {
	out := make([]ir.TypeID, 0)
	lv := v.LookupPath(cue.ParsePath(path))
	if !lv.Exists() {
		return out, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, ir.TypeID(s))
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// CompileTypesString compiles CUE source text. Used by tests and tooling.
func CompileTypesString(src string) (*TypeSet, error) {
	v := cuecontext.New().CompileString(src)
	return CompileTypes(v)
}

// LoadTypesDir loads the CUE package in dir and compiles its types.
func LoadTypesDir(dir string) (*TypeSet, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("load types: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load types: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load types: no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load types: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("load types: %w", formatCUEError(err))
	}
	return CompileTypes(value)
}
