package query

import (
	"fmt"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
	"github.com/roach88/loam/internal/schema"
)

// ViewDefinition is the logical view of a ViewDefinition node: a stored
// query plus presentation settings.
type ViewDefinition struct {
	ID                ir.NodeID
	Name              string
	Query             ir.NodeID
	Layout            string
	Sort              string
	GroupBy           string
	DisplayProperties []string
	PageSize          int
}

// SaveView stores v on a ViewDefinition node.
func SaveView(g *graph.Graph, v ViewDefinition, opts ...graph.Option) (graph.Result, error) {
	props := ir.PropertyMap{
		schema.PropName:              ir.Text(v.Name),
		schema.PropQuery:             ir.NodeRef{ID: v.Query},
		schema.PropDisplayProperties: ir.TextList(v.DisplayProperties...),
	}
	for key, val := range map[string]string{
		schema.PropLayout:  v.Layout,
		schema.PropSort:    v.Sort,
		schema.PropGroupBy: v.GroupBy,
	} {
		if val != "" {
			props[key] = ir.Text(val)
		}
	}
	if v.PageSize > 0 {
		props[schema.PropPageSize] = ir.Number(v.PageSize)
	}
	return upsert(g, v.ID, schema.ViewDefinition, props, opts)
}

// ResolveView joins a view with the query it references.
//
// Fails with ir.ErrCodeNotFound when the view or its query definition is
// missing.
func ResolveView(g *graph.Graph, id ir.NodeID) (ViewDefinition, Query, error) {
	n, ok := g.Node(id)
	if !ok || n.Type != schema.ViewDefinition {
		return ViewDefinition{}, Query{}, ir.NewNotFound("view definition", string(id))
	}

	v := ViewDefinition{ID: id, DisplayProperties: []string{}}
	text := func(key string) string {
		s, _ := n.Properties[key].(ir.Text)
		return string(s)
	}
	v.Name = text(schema.PropName)
	v.Layout = text(schema.PropLayout)
	v.Sort = text(schema.PropSort)
	v.GroupBy = text(schema.PropGroupBy)
	if l, ok := n.Properties[schema.PropDisplayProperties].(ir.List); ok {
		for _, item := range l {
			if s, ok := item.(ir.Text); ok {
				v.DisplayProperties = append(v.DisplayProperties, string(s))
			}
		}
	}
	if size, ok := n.Properties[schema.PropPageSize].(ir.Number); ok {
		v.PageSize = int(size)
	}

	switch ref := n.Properties[schema.PropQuery].(type) {
	case ir.NodeRef:
		v.Query = ref.ID
	case ir.Text:
		v.Query = ir.NodeID(ref)
	default:
		return ViewDefinition{}, Query{}, ir.NewParseFailure("view definition "+string(id), fmt.Errorf("query reference missing"))
	}

	def, err := LoadDefinition(g, v.Query)
	if err != nil {
		return ViewDefinition{}, Query{}, fmt.Errorf("view %s: %w", id, err)
	}
	return v, def.Query, nil
}

// ExecuteView runs the view's query with params, then applies the view's
// sort override and page size.
func ExecuteView(g *graph.Graph, id ir.NodeID, params map[string]ir.Value) (Result, error) {
	v, _, err := ResolveView(g, id)
	if err != nil {
		return Result{}, err
	}
	q, err := Bind(g, v.Query, params)
	if err != nil {
		return Result{}, fmt.Errorf("view %s: %w", id, err)
	}
	if v.Sort != "" {
		q.Steps = append(q.Steps, Sort{Property: v.Sort, Direction: Asc})
	}
	if v.PageSize > 0 {
		q.Steps = append(q.Steps, Limit{N: v.PageSize})
	}
	return Execute(g, q)
}
