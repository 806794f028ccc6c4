package schema

// Well-known system ids. Each is both a node id and, for type definitions,
// the TypeID it defines.
const (
	NodeType        = "sys:NodeType"
	EdgeType        = "sys:EdgeType"
	QueryDefinition = "sys:QueryDefinition"
	ViewDefinition  = "sys:ViewDefinition"
	Template        = "sys:Template"

	ChildOf      = "sys:ChildOf"
	Defines      = "sys:Defines"
	References   = "sys:References"
	Prerequisite = "sys:Prerequisite"

	QueryAllNodes = "sys:query:all-nodes"
	QueryByType   = "sys:query:by-type"
	QueryRecent   = "sys:query:recent"

	ViewAllNodes = "sys:view:all-nodes"
	ViewRecent   = "sys:view:recent"
)

// Property names used on definition nodes.
const (
	PropName               = "name"
	PropDescription        = "description"
	PropProperties         = "properties"
	PropValidOutgoingEdges = "validOutgoingEdges"
	PropValidIncomingEdges = "validIncomingEdges"
	PropSourceTypes        = "sourceTypes"
	PropTargetTypes        = "targetTypes"
	PropTransitive         = "transitive"
	PropInverse            = "inverse"

	PropQuery             = "query"
	PropParameters        = "parameters"
	PropLayout            = "layout"
	PropSort              = "sort"
	PropGroupBy           = "groupBy"
	PropDisplayProperties = "displayProperties"
	PropPageSize          = "pageSize"

	PropPosition = "position"
)
