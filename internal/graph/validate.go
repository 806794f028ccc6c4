package graph

// Validation error codes reported in ValidationError.Code.
const (
	CodeMissingRequired   = "missing_required"
	CodeKindMismatch      = "kind_mismatch"
	CodeInvalidSourceType = "invalid_source_type"
	CodeInvalidTargetType = "invalid_target_type"
	CodeMissingEndpoint   = "missing_endpoint"
	CodeInvalidDefinition = "invalid_definition"
)

// ValidationError describes one violation of a type definition.
type ValidationError struct {
	Code     string `json:"code"`
	Property string `json:"property,omitempty"`
	Message  string `json:"message"`
}

// ValidationResult aggregates every violation found for one entity.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Messages returns the error messages in order.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Validator checks nodes and edges against the type definitions stored in
// a graph. Implementations never fail; violations are reported in the
// result.
type Validator interface {
	ValidateNode(g *Graph, n Node) ValidationResult
	ValidateEdge(g *Graph, e Edge) ValidationResult
}
