package graph

import (
	"fmt"
	"time"

	"github.com/roach88/loam/internal/ir"
)

// SnapshotVersion is the format version written by MarshalSnapshot.
const SnapshotVersion = 1

// MarshalSnapshot encodes the full graph as canonical JSON.
// Nodes and edges are written in id order, so equal graphs encode to equal
// bytes.
func MarshalSnapshot(g *Graph) ([]byte, error) {
	tree, err := snapshotTree(g, true)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return ir.MarshalCanonical(tree)
}

// Fingerprint returns a content hash of the graph's nodes and edges.
// Graph id, name and metadata do not contribute.
func Fingerprint(g *Graph) (string, error) {
	tree, err := snapshotTree(g, false)
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(ir.DomainGraph, tree)
}

func snapshotTree(g *Graph, header bool) (map[string]any, error) {
	nodes := make([]any, 0, len(g.nodes))
	for _, n := range g.Nodes() {
		props, err := ir.EncodeProperties(n.Properties)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		nodes = append(nodes, map[string]any{
			"id":         string(n.ID),
			"type":       string(n.Type),
			"properties": props,
			"metadata":   encodeMetadata(n.Metadata),
		})
	}

	edges := make([]any, 0, len(g.edges))
	for _, e := range g.Edges() {
		props, err := ir.EncodeProperties(e.Properties)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", e.ID, err)
		}
		edges = append(edges, map[string]any{
			"id":         string(e.ID),
			"type":       string(e.Type),
			"source":     string(e.Source),
			"target":     string(e.Target),
			"properties": props,
			"metadata":   encodeMetadata(e.Metadata),
		})
	}

	tree := map[string]any{"nodes": nodes, "edges": edges}
	if header {
		tree["version"] = SnapshotVersion
		tree["id"] = string(g.id)
		tree["name"] = g.name
		tree["metadata"] = encodeMetadata(g.meta)
	}
	return tree, nil
}

func encodeMetadata(m Metadata) map[string]any {
	return map[string]any{
		"created":  formatTime(m.Created),
		"modified": formatTime(m.Modified),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// UnmarshalSnapshot decodes bytes produced by MarshalSnapshot.
// Malformed input fails with ir.ErrCodeParseFailure.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	raw, err := ir.DecodeJSON(data)
	if err != nil {
		return nil, ir.NewParseFailure("snapshot", err)
	}
	g, err := decodeSnapshot(raw)
	if err != nil {
		return nil, ir.NewParseFailure("snapshot", err)
	}
	return g, nil
}

func decodeSnapshot(raw any) (*Graph, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", raw)
	}
	if v := fmt.Sprint(obj["version"]); v != fmt.Sprint(SnapshotVersion) {
		return nil, fmt.Errorf("unsupported snapshot version %s", v)
	}

	id, _ := obj["id"].(string)
	name, _ := obj["name"].(string)
	g := New(ir.GraphID(id), name)
	meta, err := decodeMetadata(obj["metadata"])
	if err != nil {
		return nil, err
	}
	g.meta = meta

	nodes, _ := obj["nodes"].([]any)
	for i, item := range nodes {
		n, err := decodeNode(item)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		g.nodes[n.ID] = n
	}

	edges, _ := obj["edges"].([]any)
	for i, item := range edges {
		e, err := decodeEdge(item)
		if err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
		if err := g.checkEndpoints(e); err != nil {
			return nil, err
		}
		g.edges[e.ID] = e
	}
	return g, nil
}

func decodeNode(raw any) (Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Node{}, fmt.Errorf("expected object")
	}
	id, _ := obj["id"].(string)
	if id == "" {
		return Node{}, fmt.Errorf("missing id")
	}
	typ, _ := obj["type"].(string)
	props, err := ir.DecodeProperties(obj["properties"])
	if err != nil {
		return Node{}, err
	}
	meta, err := decodeMetadata(obj["metadata"])
	if err != nil {
		return Node{}, err
	}
	return Node{ID: ir.NodeID(id), Type: ir.TypeID(typ), Properties: props, Metadata: meta}, nil
}

func decodeEdge(raw any) (Edge, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Edge{}, fmt.Errorf("expected object")
	}
	id, _ := obj["id"].(string)
	if id == "" {
		return Edge{}, fmt.Errorf("missing id")
	}
	typ, _ := obj["type"].(string)
	source, _ := obj["source"].(string)
	target, _ := obj["target"].(string)
	props, err := ir.DecodeProperties(obj["properties"])
	if err != nil {
		return Edge{}, err
	}
	meta, err := decodeMetadata(obj["metadata"])
	if err != nil {
		return Edge{}, err
	}
	return Edge{
		ID:         ir.EdgeID(id),
		Type:       ir.TypeID(typ),
		Source:     ir.NodeID(source),
		Target:     ir.NodeID(target),
		Properties: props,
		Metadata:   meta,
	}, nil
}

func decodeMetadata(raw any) (Metadata, error) {
	obj, _ := raw.(map[string]any)
	created, _ := obj["created"].(string)
	modified, _ := obj["modified"].(string)
	c, err := parseTime(created)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata created: %w", err)
	}
	m, err := parseTime(modified)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata modified: %w", err)
	}
	return Metadata{Created: c, Modified: m}, nil
}
