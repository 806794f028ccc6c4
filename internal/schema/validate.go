package schema

import (
	"fmt"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// Validator checks entities against the type definitions held in the graph.
// It implements graph.Validator.
type Validator struct{}

var _ graph.Validator = Validator{}

// ValidateNode implements graph.Validator.
func (Validator) ValidateNode(g *graph.Graph, n graph.Node) graph.ValidationResult {
	return ValidateNode(g, n)
}

// ValidateEdge implements graph.Validator.
func (Validator) ValidateEdge(g *graph.Graph, e graph.Edge) graph.ValidationResult {
	return ValidateEdge(g, e)
}

// ValidateNode checks n against the definition of its type.
//
// A type without a definition node is unconstrained. Every violation is
// reported; the result lists property errors in declaration order.
func ValidateNode(g *graph.Graph, n graph.Node) graph.ValidationResult {
	def, ok, err := NodeTypeOf(g, n.Type)
	if !ok {
		return valid()
	}
	if err != nil {
		return invalidDefinition(n.Type, err)
	}
	return result(checkProperties(def.Properties, n.Properties))
}

// ValidateEdge checks e against the definition of its type, including the
// allowed source and target node types.
func ValidateEdge(g *graph.Graph, e graph.Edge) graph.ValidationResult {
	def, ok, err := EdgeTypeOf(g, e.Type)
	if !ok {
		return valid()
	}
	if err != nil {
		return invalidDefinition(e.Type, err)
	}

	errs := checkProperties(def.Properties, e.Properties)
	errs = append(errs, checkEndpoint(g, "source", e.Source, def.SourceTypes, graph.CodeInvalidSourceType)...)
	errs = append(errs, checkEndpoint(g, "target", e.Target, def.TargetTypes, graph.CodeInvalidTargetType)...)
	return result(errs)
}

// Violation is a failed validation of one node or edge in ValidateGraph.
type Violation struct {
	NodeID ir.NodeID               `json:"node_id,omitempty"`
	EdgeID ir.EdgeID               `json:"edge_id,omitempty"`
	Type   ir.TypeID               `json:"type"`
	Errors []graph.ValidationError `json:"errors"`
}

// ValidateGraph validates every node and then every edge of g, in id
// order, and returns the failures. An empty result means g conforms to
// its own type definitions.
func ValidateGraph(g *graph.Graph) []Violation {
	out := []Violation{}
	for _, n := range g.Nodes() {
		if res := ValidateNode(g, n); !res.Valid {
			out = append(out, Violation{NodeID: n.ID, Type: n.Type, Errors: res.Errors})
		}
	}
	for _, e := range g.Edges() {
		if res := ValidateEdge(g, e); !res.Valid {
			out = append(out, Violation{EdgeID: e.ID, Type: e.Type, Errors: res.Errors})
		}
	}
	return out
}

func valid() graph.ValidationResult {
	return graph.ValidationResult{Valid: true, Errors: []graph.ValidationError{}}
}

func result(errs []graph.ValidationError) graph.ValidationResult {
	return graph.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func invalidDefinition(t ir.TypeID, err error) graph.ValidationResult {
	return result([]graph.ValidationError{{
		Code:    graph.CodeInvalidDefinition,
		Message: fmt.Sprintf("type %s has an invalid definition: %v", t, err),
	}})
}

func checkProperties(defs []PropertyDefinition, props ir.PropertyMap) []graph.ValidationError {
	errs := make([]graph.ValidationError, 0)
	for _, def := range defs {
		v, present := props[def.Name]
		if present {
			if _, null := v.(ir.Null); null || v == nil {
				present = false
			}
		}

		if !present {
			if def.Required {
				errs = append(errs, graph.ValidationError{
					Code:     graph.CodeMissingRequired,
					Property: def.Name,
					Message:  fmt.Sprintf("property %q is required", def.Name),
				})
			}
			continue
		}

		if !kindMatches(def.Kind, v) {
			errs = append(errs, graph.ValidationError{
				Code:     graph.CodeKindMismatch,
				Property: def.Name,
				Message:  fmt.Sprintf("property %q must be %s, got %s", def.Name, def.Kind, v.Kind()),
			})
		}
	}
	return errs
}

// kindMatches reports whether v has the declared shape. A list kind accepts
// any list; scalar kinds reject lists.
func kindMatches(kind ir.Kind, v ir.Value) bool {
	_, isList := v.(ir.List)
	if kind == ir.KindList {
		return isList
	}
	return !isList && v.Kind() == kind
}

func checkEndpoint(g *graph.Graph, role string, id ir.NodeID, allowed []ir.TypeID, code string) []graph.ValidationError {
	n, ok := g.Node(id)
	if !ok {
		return []graph.ValidationError{{
			Code:     graph.CodeMissingEndpoint,
			Property: role,
			Message:  fmt.Sprintf("%s node %q does not exist", role, id),
		}}
	}
	if !allows(allowed, n.Type) {
		return []graph.ValidationError{{
			Code:     code,
			Property: role,
			Message:  fmt.Sprintf("%s node %q has type %q, expected one of %v", role, id, n.Type, allowed),
		}}
	}
	return nil
}
