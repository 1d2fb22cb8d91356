// Package graph implements the typed directed multigraph of spec.md §4.6
// (C6 Module Graph) and its deterministic post-order sort. Grounded on
// original_source/src/graph/module_graph.rs, which wraps petgraph; we have
// no petgraph equivalent in the corpus, so this is a small handwritten
// adjacency-list graph in the style of evanw-esbuild's internal/graph
// package (dense index-based nodes, no pointer ownership — modules
// themselves stay owned by the driver's id->Module map, per spec.md §9).
package graph

import (
	"sort"

	"github.com/h-a-n-a/dts-up/internal/resolver"
)

type EdgeKind uint8

const (
	EdgeImport EdgeKind = iota
	EdgeExportNamed
	EdgeExportNamespace
	EdgeExportAll
)

// MIndex is a dense index into Graph's node table.
type MIndex int

// Edge is one typed, indexed arc from an importer/re-exporter to the
// module it references.
type Edge struct {
	To    MIndex
	Kind  EdgeKind
	Index int32
}

type node struct {
	id  resolver.ModuleID
	out []Edge
}

// Graph is spec.md's directed multigraph over module ids.
type Graph struct {
	nodes   []node
	indexOf map[resolver.ModuleID]MIndex
}

func New() *Graph {
	return &Graph{indexOf: make(map[resolver.ModuleID]MIndex)}
}

// AddModule is idempotent: a module already present returns its existing
// index.
func (g *Graph) AddModule(id resolver.ModuleID) MIndex {
	if idx, ok := g.indexOf[id]; ok {
		return idx
	}
	idx := MIndex(len(g.nodes))
	g.nodes = append(g.nodes, node{id: id})
	g.indexOf[id] = idx
	return idx
}

// GetOrAdd is an alias for AddModule kept for parity with spec.md's
// get_or_add, used at edge-emission sites where the intent is "this
// endpoint may not exist yet."
func (g *Graph) GetOrAdd(id resolver.ModuleID) MIndex {
	return g.AddModule(id)
}

func (g *Graph) AddEdge(from, to resolver.ModuleID, kind EdgeKind, index int32) {
	fi := g.AddModule(from)
	ti := g.AddModule(to)
	g.nodes[fi].out = append(g.nodes[fi].out, Edge{To: ti, Kind: kind, Index: index})
}

func (g *Graph) IDOf(idx MIndex) resolver.ModuleID {
	return g.nodes[idx].id
}

func (g *Graph) IndexOf(id resolver.ModuleID) (MIndex, bool) {
	idx, ok := g.indexOf[id]
	return idx, ok
}

// EdgesFrom returns m's outgoing edges in the order they were added.
// SortModules sorts its own copy ascending by Index.
func (g *Graph) EdgesFrom(m MIndex) []Edge {
	return g.nodes[m].out
}

// SortModules performs the iterative post-order DFS of spec.md §4.6: from
// entry, at each node visit outgoing edges sorted ascending by edge index,
// pushing unvisited targets, and emit each node on its second visit. Leaves
// land first in the output, matching TypeScript's forward-reference
// tolerance.
func (g *Graph) SortModules(entry resolver.ModuleID) []MIndex {
	start, ok := g.indexOf[entry]
	if !ok {
		return nil
	}

	const (
		stateUnvisited = iota
		stateVisiting
		stateDone
	)
	state := make([]int, len(g.nodes))

	type frame struct {
		node    MIndex
		edgeIdx int
		edges   []Edge
	}

	var out []MIndex
	var stack []frame

	push := func(m MIndex) {
		edges := append([]Edge(nil), g.EdgesFrom(m)...)
		sort.SliceStable(edges, func(i, j int) bool { return edges[i].Index < edges[j].Index })
		state[m] = stateVisiting
		stack = append(stack, frame{node: m, edges: edges})
	}

	push(start)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.edgeIdx >= len(top.edges) {
			out = append(out, top.node)
			state[top.node] = stateDone
			stack = stack[:len(stack)-1]
			continue
		}
		e := top.edges[top.edgeIdx]
		top.edgeIdx++
		if state[e.To] == stateUnvisited {
			push(e.To)
		}
		// stateVisiting (a back-edge, i.e. a cycle) and stateDone targets
		// are both skipped: the cycle's member is already on the stack or
		// already emitted, so no further action is needed here.
	}
	return out
}
