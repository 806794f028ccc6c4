package schema

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// PropertyDefinition declares one property of a type.
type PropertyDefinition struct {
	Name        string  `json:"name"`
	Kind        ir.Kind `json:"valueKind"`
	Required    bool    `json:"required"`
	Description string  `json:"description,omitempty"`
}

// NodeTypeDefinition is the logical view of a NodeType node.
type NodeTypeDefinition struct {
	ID                 ir.TypeID
	Name               string
	Description        string
	Properties         []PropertyDefinition
	ValidOutgoingEdges []ir.TypeID
	ValidIncomingEdges []ir.TypeID
}

// EdgeTypeDefinition is the logical view of an EdgeType node.
// Empty SourceTypes or TargetTypes leave that endpoint unconstrained.
type EdgeTypeDefinition struct {
	ID          ir.TypeID
	Name        string
	Description string
	Properties  []PropertyDefinition
	SourceTypes []ir.TypeID
	TargetTypes []ir.TypeID
	Transitive  bool
	Inverse     ir.TypeID
}

// MarshalProperties serializes property definitions to the text stored in
// a definition node's properties field.
func MarshalProperties(defs []PropertyDefinition) (string, error) {
	items := make([]any, len(defs))
	for i, d := range defs {
		if !ir.ValidKinds[d.Kind] {
			return "", fmt.Errorf("property %q: unknown kind %q", d.Name, d.Kind)
		}
		item := map[string]any{
			"name":      d.Name,
			"valueKind": string(d.Kind),
			"required":  d.Required,
		}
		if d.Description != "" {
			item["description"] = d.Description
		}
		items[i] = item
	}
	data, err := ir.MarshalCanonical(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseProperties decodes a serialized property definition list.
// Fails with ir.ErrCodeParseFailure on malformed text or unknown kinds.
func ParseProperties(text string) ([]PropertyDefinition, error) {
	var defs []PropertyDefinition
	if err := json.Unmarshal([]byte(text), &defs); err != nil {
		return nil, ir.NewParseFailure("property definitions", err)
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, ir.NewParseFailure("property definitions", fmt.Errorf("entry %d: missing name", i))
		}
		if !ir.ValidKinds[d.Kind] {
			return nil, ir.NewParseFailure("property definitions", fmt.Errorf("property %q: unknown kind %q", d.Name, d.Kind))
		}
	}
	if defs == nil {
		defs = []PropertyDefinition{}
	}
	return defs, nil
}

// propertiesOf parses the properties field of a definition node.
// An absent field means no declared properties.
func propertiesOf(n graph.Node) ([]PropertyDefinition, error) {
	raw, ok := n.Properties[PropProperties]
	if !ok {
		return []PropertyDefinition{}, nil
	}
	switch v := raw.(type) {
	case ir.Null:
		return []PropertyDefinition{}, nil
	case ir.Text:
		return ParseProperties(string(v))
	default:
		return nil, ir.NewParseFailure("property definitions", fmt.Errorf("expected text, got %s", raw.Kind()))
	}
}

func textOf(n graph.Node, key string) string {
	if t, ok := n.Properties[key].(ir.Text); ok {
		return string(t)
	}
	return ""
}

func typeListOf(n graph.Node, key string) []ir.TypeID {
	out := make([]ir.TypeID, 0)
	switch v := n.Properties[key].(type) {
	case ir.List:
		for _, item := range v {
			if t, ok := item.(ir.Text); ok {
				out = append(out, ir.TypeID(t))
			}
		}
	case ir.Text:
		out = append(out, ir.TypeID(v))
	}
	return out
}

func typeList(ids []ir.TypeID) ir.List {
	l := make(ir.List, len(ids))
	for i, id := range ids {
		l[i] = ir.Text(id)
	}
	return l
}

// NodeTypeOf extracts the node type definition for t.
// Returns false when the graph has no NodeType node with that id.
func NodeTypeOf(g *graph.Graph, t ir.TypeID) (NodeTypeDefinition, bool, error) {
	n, ok := g.Node(t.AsNode())
	if !ok || n.Type != NodeType {
		return NodeTypeDefinition{}, false, nil
	}
	props, err := propertiesOf(n)
	if err != nil {
		return NodeTypeDefinition{}, true, err
	}
	return NodeTypeDefinition{
		ID:                 t,
		Name:               textOf(n, PropName),
		Description:        textOf(n, PropDescription),
		Properties:         props,
		ValidOutgoingEdges: typeListOf(n, PropValidOutgoingEdges),
		ValidIncomingEdges: typeListOf(n, PropValidIncomingEdges),
	}, true, nil
}

// EdgeTypeOf extracts the edge type definition for t.
// Returns false when the graph has no EdgeType node with that id.
func EdgeTypeOf(g *graph.Graph, t ir.TypeID) (EdgeTypeDefinition, bool, error) {
	n, ok := g.Node(t.AsNode())
	if !ok || n.Type != EdgeType {
		return EdgeTypeDefinition{}, false, nil
	}
	props, err := propertiesOf(n)
	if err != nil {
		return EdgeTypeDefinition{}, true, err
	}
	transitive, _ := n.Properties[PropTransitive].(ir.Bool)
	return EdgeTypeDefinition{
		ID:          t,
		Name:        textOf(n, PropName),
		Description: textOf(n, PropDescription),
		Properties:  props,
		SourceTypes: typeListOf(n, PropSourceTypes),
		TargetTypes: typeListOf(n, PropTargetTypes),
		Transitive:  bool(transitive),
		Inverse:     ir.TypeID(textOf(n, PropInverse)),
	}, true, nil
}

// NodeTypes returns every node type definition in the graph, ordered by id.
// Definitions whose property list does not parse are skipped.
func NodeTypes(g *graph.Graph) []NodeTypeDefinition {
	out := make([]NodeTypeDefinition, 0)
	for _, n := range g.NodesOfType(NodeType) {
		if def, ok, err := NodeTypeOf(g, n.ID.AsType()); ok && err == nil {
			out = append(out, def)
		}
	}
	return out
}

// EdgeTypes returns every edge type definition in the graph, ordered by id.
func EdgeTypes(g *graph.Graph) []EdgeTypeDefinition {
	out := make([]EdgeTypeDefinition, 0)
	for _, n := range g.NodesOfType(EdgeType) {
		if def, ok, err := EdgeTypeOf(g, n.ID.AsType()); ok && err == nil {
			out = append(out, def)
		}
	}
	return out
}

// NodeTypeNode builds the definition node for def.
func NodeTypeNode(def NodeTypeDefinition) (graph.Node, error) {
	props, err := MarshalProperties(def.Properties)
	if err != nil {
		return graph.Node{}, fmt.Errorf("node type %s: %w", def.ID, err)
	}
	p := ir.PropertyMap{
		PropName:               ir.Text(def.Name),
		PropProperties:         ir.Text(props),
		PropValidOutgoingEdges: typeList(def.ValidOutgoingEdges),
		PropValidIncomingEdges: typeList(def.ValidIncomingEdges),
	}
	if def.Description != "" {
		p[PropDescription] = ir.Text(def.Description)
	}
	return graph.Node{ID: def.ID.AsNode(), Type: NodeType, Properties: p}, nil
}

// EdgeTypeNode builds the definition node for def.
func EdgeTypeNode(def EdgeTypeDefinition) (graph.Node, error) {
	props, err := MarshalProperties(def.Properties)
	if err != nil {
		return graph.Node{}, fmt.Errorf("edge type %s: %w", def.ID, err)
	}
	p := ir.PropertyMap{
		PropName:        ir.Text(def.Name),
		PropProperties:  ir.Text(props),
		PropSourceTypes: typeList(def.SourceTypes),
		PropTargetTypes: typeList(def.TargetTypes),
		PropTransitive:  ir.Bool(def.Transitive),
	}
	if def.Description != "" {
		p[PropDescription] = ir.Text(def.Description)
	}
	if def.Inverse != "" {
		p[PropInverse] = ir.Text(def.Inverse)
	}
	return graph.Node{ID: def.ID.AsNode(), Type: EdgeType, Properties: p}, nil
}

func allows(allowed []ir.TypeID, t ir.TypeID) bool {
	return len(allowed) == 0 || slices.Contains(allowed, t)
}
