package schema

import (
	"fmt"
	"time"

	"github.com/roach88/loam/internal/event"
	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// Epoch stamps every system node, so independently bootstrapped graphs are
// structurally equal.
var Epoch = time.Unix(0, 0).UTC()

// systemNodes is built once at startup and never modified.
var systemNodes = mustSystemNodes()

// SystemNodes returns copies of the nodes Bootstrap inserts, in insertion
// order.
func SystemNodes() []graph.Node {
	out := make([]graph.Node, len(systemNodes))
	for i, n := range systemNodes {
		out[i] = n.Clone()
	}
	return out
}

// IsSystem reports whether id is one of the bootstrap node ids.
func IsSystem(id ir.NodeID) bool {
	for _, n := range systemNodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Bootstrap returns g with every missing system node inserted.
//
// Existing nodes, including user-modified system nodes, are left alone, so
// Bootstrap(Bootstrap(g)) is structurally equal to Bootstrap(g). When
// nothing is missing g itself is returned.
func Bootstrap(g *graph.Graph) *graph.Graph {
	events := make([]event.Event, 0, len(systemNodes))
	for _, n := range systemNodes {
		if g.HasNode(n.ID) {
			continue
		}
		events = append(events, event.NodeCreated{
			Header:     event.Header{ID: ir.EventID("bootstrap:" + string(n.ID)), At: Epoch},
			NodeID:     n.ID,
			NodeType:   n.Type,
			Properties: n.Properties.Clone(),
		})
	}
	if len(events) == 0 {
		return g
	}
	next, err := graph.ProjectGraph(events, g)
	if err != nil {
		// NodeCreated never fails.
		panic(fmt.Sprintf("bootstrap: %v", err))
	}
	return next
}

func text(name string, required bool, desc string) PropertyDefinition {
	return PropertyDefinition{Name: name, Kind: ir.KindText, Required: required, Description: desc}
}

func list(name, desc string) PropertyDefinition {
	return PropertyDefinition{Name: name, Kind: ir.KindList, Description: desc}
}

func mustSystemNodes() []graph.Node {
	typeProps := []PropertyDefinition{
		text(PropName, true, "Display name"),
		text(PropDescription, false, ""),
		text(PropProperties, false, "Serialized property definitions"),
	}
	nodeTypeProps := append(typeProps[:len(typeProps):len(typeProps)],
		list(PropValidOutgoingEdges, "Edge types allowed from this type"),
		list(PropValidIncomingEdges, "Edge types allowed into this type"),
	)
	edgeTypeProps := append(typeProps[:len(typeProps):len(typeProps)],
		list(PropSourceTypes, "Allowed source node types"),
		list(PropTargetTypes, "Allowed target node types"),
		PropertyDefinition{Name: PropTransitive, Kind: ir.KindBoolean},
		text(PropInverse, false, "Edge type of the inverse relation"),
	)

	var nodes []graph.Node
	addNodeType := func(def NodeTypeDefinition) {
		n, err := NodeTypeNode(def)
		if err != nil {
			panic(err)
		}
		nodes = append(nodes, n)
	}
	addEdgeType := func(def EdgeTypeDefinition) {
		n, err := EdgeTypeNode(def)
		if err != nil {
			panic(err)
		}
		nodes = append(nodes, n)
	}

	addNodeType(NodeTypeDefinition{
		ID:          NodeType,
		Name:        "Node Type",
		Description: "Defines a node type. Its own type is itself.",
		Properties:  nodeTypeProps,
	})
	addNodeType(NodeTypeDefinition{
		ID:          EdgeType,
		Name:        "Edge Type",
		Description: "Defines an edge type and its endpoint constraints.",
		Properties:  edgeTypeProps,
	})
	addNodeType(NodeTypeDefinition{
		ID:   QueryDefinition,
		Name: "Query Definition",
		Properties: []PropertyDefinition{
			text(PropName, true, ""),
			text(PropDescription, false, ""),
			text(PropQuery, true, "Serialized query"),
			list(PropParameters, "Declared parameter names"),
		},
	})
	addNodeType(NodeTypeDefinition{
		ID:   ViewDefinition,
		Name: "View Definition",
		Properties: []PropertyDefinition{
			text(PropName, true, ""),
			{Name: PropQuery, Kind: ir.KindNodeRef, Required: true, Description: "Query definition to display"},
			text(PropLayout, false, "list, table, board or graph"),
			text(PropSort, false, "Property to sort by"),
			text(PropGroupBy, false, "Property to group by"),
			list(PropDisplayProperties, "Visible properties"),
			{Name: PropPageSize, Kind: ir.KindNumber},
		},
	})
	addNodeType(NodeTypeDefinition{
		ID:   Template,
		Name: "Template",
		Properties: []PropertyDefinition{
			text(PropName, true, ""),
			text(PropDescription, false, ""),
		},
	})

	addEdgeType(EdgeTypeDefinition{
		ID:          ChildOf,
		Name:        "Child Of",
		Description: "Orders a child under its parent by position.",
		Properties:  []PropertyDefinition{text(PropPosition, true, "Fractional index")},
	})
	addEdgeType(EdgeTypeDefinition{ID: Defines, Name: "Defines"})
	addEdgeType(EdgeTypeDefinition{ID: References, Name: "References"})
	addEdgeType(EdgeTypeDefinition{ID: Prerequisite, Name: "Prerequisite", Transitive: true})

	queries := []struct {
		id, name, query string
		params          []string
	}{
		{QueryAllNodes, "All Nodes", `{"steps":[{"kind":"node-scan"}]}`, nil},
		{QueryByType, "By Type", `{"steps":[{"kind":"node-scan","type":"$type"}]}`, []string{"type"}},
		{QueryRecent, "Recent", `{"steps":[{"kind":"node-scan"},{"kind":"sort","property":"modified","direction":"desc"},{"kind":"limit","n":50}]}`, nil},
	}
	for _, q := range queries {
		nodes = append(nodes, graph.Node{
			ID:   ir.NodeID(q.id),
			Type: QueryDefinition,
			Properties: ir.PropertyMap{
				PropName:       ir.Text(q.name),
				PropQuery:      ir.Text(q.query),
				PropParameters: ir.TextList(q.params...),
			},
		})
	}

	views := []struct {
		id, name, query, layout string
	}{
		{ViewAllNodes, "All Nodes", QueryAllNodes, "table"},
		{ViewRecent, "Recent", QueryRecent, "list"},
	}
	for _, v := range views {
		nodes = append(nodes, graph.Node{
			ID:   ir.NodeID(v.id),
			Type: ViewDefinition,
			Properties: ir.PropertyMap{
				PropName:              ir.Text(v.name),
				PropQuery:             ir.NodeRef{ID: ir.NodeID(v.query)},
				PropLayout:            ir.Text(v.layout),
				PropDisplayProperties: ir.TextList("name", "type", "modified"),
				PropPageSize:          ir.Number(50),
			},
		})
	}
	return nodes
}
