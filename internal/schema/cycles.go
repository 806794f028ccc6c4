package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/loam/internal/graph"
	"github.com/roach88/loam/internal/ir"
)

// CycleWarning reports nodes whose ChildOf edges loop back on themselves.
//
// InsertChild does not walk ancestors, so a hierarchy can become cyclic.
// Such graphs are still valid; cycles are reported as warnings.
type CycleWarning struct {
	Path    []ir.NodeID `json:"path"` // parent to child, ending where it started
	Message string      `json:"message"`
}

// hierarchy maps each parent to its children in id order.
type hierarchy map[ir.NodeID][]ir.NodeID

func buildHierarchy(g *graph.Graph) hierarchy {
	h := make(hierarchy)
	for _, e := range g.Edges() {
		if e.Type != ChildOf {
			continue
		}
		h[e.Target] = append(h[e.Target], e.Source)
		if _, ok := h[e.Source]; !ok {
			h[e.Source] = nil
		}
	}
	return h
}

// ChildCycles finds every cycle in the ordered-children hierarchy of g.
// Results are deterministic: each path starts at the smallest id in its
// cycle and warnings are sorted by that id.
func ChildCycles(g *graph.Graph) []CycleWarning {
	h := buildHierarchy(g)
	out := []CycleWarning{}
	for _, scc := range stronglyConnected(h) {
		if len(scc) == 1 && !slices.Contains(h[scc[0]], scc[0]) {
			continue
		}
		path := cyclePath(scc, h)
		labels := make([]string, len(path))
		for i, id := range path {
			labels[i] = string(id)
		}
		out = append(out, CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("child hierarchy cycle: %s", strings.Join(labels, " → ")),
		})
	}
	slices.SortFunc(out, func(a, b CycleWarning) int {
		return strings.Compare(string(a.Path[0]), string(b.Path[0]))
	})
	return out
}

// stronglyConnected runs Tarjan's algorithm over h, visiting nodes in id
// order.
func stronglyConnected(h hierarchy) [][]ir.NodeID {
	var (
		next    int
		stack   []ir.NodeID
		index   = make(map[ir.NodeID]int)
		lowlink = make(map[ir.NodeID]int)
		onStack = make(map[ir.NodeID]bool)
		sccs    [][]ir.NodeID
	)

	var visit func(ir.NodeID)
	visit = func(v ir.NodeID) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range h[v] {
			if _, seen := index[w]; !seen {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] != index[v] {
			return
		}
		var scc []ir.NodeID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		slices.Sort(scc)
		sccs = append(sccs, scc)
	}

	ids := make([]ir.NodeID, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}
	return sccs
}

// cyclePath walks from the smallest member of scc through members not yet
// visited until it can step back to the start.
func cyclePath(scc []ir.NodeID, h hierarchy) []ir.NodeID {
	start := scc[0]
	if len(scc) == 1 {
		return []ir.NodeID{start, start}
	}

	member := make(map[ir.NodeID]bool, len(scc))
	for _, id := range scc {
		member[id] = true
	}
	visited := map[ir.NodeID]bool{start: true}
	path := []ir.NodeID{start}
	for cur := start; ; {
		next := ir.NodeID("")
		for _, w := range h[cur] {
			if w == start && len(path) > 1 {
				return append(path, start)
			}
			if member[w] && !visited[w] && next == "" {
				next = w
			}
		}
		if next == "" {
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
}
