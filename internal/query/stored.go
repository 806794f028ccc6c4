package query

import (
	"fmt"
	"strings"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
)

// Definition is the logical view of a QueryDefinition node.
type Definition struct {
	ID          ir.NodeID
	Name        string
	Description string
	Query       Query
	Parameters  []string
}

// SaveDefinition stores def on a QueryDefinition node, creating the node or
// replacing the properties of an existing one.
func SaveDefinition(g *graph.Graph, def Definition, opts ...graph.Option) (graph.Result, error) {
	text, err := Marshal(def.Query)
	if err != nil {
		return graph.Result{}, fmt.Errorf("save query %s: %w", def.ID, err)
	}
	props := ir.PropertyMap{
		schema.PropName:       ir.Text(def.Name),
		schema.PropQuery:      ir.Text(text),
		schema.PropParameters: ir.TextList(def.Parameters...),
	}
	if def.Description != "" {
		props[schema.PropDescription] = ir.Text(def.Description)
	}
	return upsert(g, def.ID, schema.QueryDefinition, props, opts)
}

func upsert(g *graph.Graph, id ir.NodeID, t ir.TypeID, props ir.PropertyMap, opts []graph.Option) (graph.Result, error) {
	if !g.HasNode(id) {
		return graph.AddNode(g, graph.Node{ID: id, Type: t, Properties: props}, opts...)
	}
	return graph.UpdateNode(g, id, func(n graph.Node) graph.Node {
		n.Type = t
		n.Properties = props.Clone()
		return n
	}, opts...)
}

// LoadDefinition reads the QueryDefinition node id. Placeholders in the
// stored query are left unresolved.
func LoadDefinition(g *graph.Graph, id ir.NodeID) (Definition, error) {
	n, tree, err := storedTree(g, id)
	if err != nil {
		return Definition{}, err
	}
	q, err := Decode(tree)
	if err != nil {
		return Definition{}, fmt.Errorf("query definition %s: %w", id, err)
	}
	return definitionOf(n, q), nil
}

func definitionOf(n graph.Node, q Query) Definition {
	def := Definition{ID: n.ID, Query: q, Parameters: []string{}}
	if s, ok := n.Properties[schema.PropName].(ir.Text); ok {
		def.Name = string(s)
	}
	if s, ok := n.Properties[schema.PropDescription].(ir.Text); ok {
		def.Description = string(s)
	}
	if l, ok := n.Properties[schema.PropParameters].(ir.List); ok {
		for _, item := range l {
			if s, ok := item.(ir.Text); ok {
				def.Parameters = append(def.Parameters, string(s))
			}
		}
	}
	return def
}

// storedTree returns the definition node and its query as a JSON tree.
func storedTree(g *graph.Graph, id ir.NodeID) (graph.Node, any, error) {
	n, ok := g.Node(id)
	if !ok || n.Type != schema.QueryDefinition {
		return graph.Node{}, nil, ir.NewNotFound("query definition", string(id))
	}
	text, ok := n.Properties[schema.PropQuery].(ir.Text)
	if !ok {
		return graph.Node{}, nil, ir.NewParseFailure("query definition "+string(id), fmt.Errorf("query property is not text"))
	}
	tree, err := ir.DecodeJSON([]byte(text))
	if err != nil {
		return graph.Node{}, nil, ir.NewParseFailure("query definition "+string(id), err)
	}
	return n, tree, nil
}

// ExecuteStored runs the stored query id with params substituted.
//
// Every string value of the form "$name" anywhere in the serialized query
// is replaced with params[name]. Placeholders without a matching parameter
// stay literal strings.
func ExecuteStored(g *graph.Graph, id ir.NodeID, params map[string]ir.Value) (Result, error) {
	q, err := Bind(g, id, params)
	if err != nil {
		return Result{}, err
	}
	return Execute(g, q)
}

// Bind loads the stored query id and substitutes params without running it.
func Bind(g *graph.Graph, id ir.NodeID, params map[string]ir.Value) (Query, error) {
	_, tree, err := storedTree(g, id)
	if err != nil {
		return Query{}, err
	}
	encoded := make(map[string]any, len(params))
	for k, v := range params {
		enc, err := ir.EncodeValue(v)
		if err != nil {
			return Query{}, fmt.Errorf("parameter %q: %w", k, err)
		}
		encoded[k] = enc
	}
	q, err := Decode(Substitute(tree, encoded))
	if err != nil {
		return Query{}, fmt.Errorf("query definition %s: %w", id, err)
	}
	return q, nil
}

// Substitute walks a JSON tree and replaces "$name" strings with
// params[name]. The input tree is not modified.
func Substitute(tree any, params map[string]any) any {
	switch v := tree.(type) {
	case string:
		if name, ok := strings.CutPrefix(v, "$"); ok {
			if p, found := params[name]; found {
				return p
			}
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Substitute(item, params)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Substitute(item, params)
		}
		return out
	default:
		return v
	}
}
