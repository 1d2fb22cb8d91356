package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idsOf(g *Graph, order []MIndex) []string {
	out := make([]string, len(order))
	for i, m := range order {
		out[i] = g.IDOf(m)
	}
	return out
}

func TestSortModulesVisitsLeavesBeforeDependents(t *testing.T) {
	g := New()
	g.AddEdge("/index.d.ts", "/a.d.ts", EdgeImport, 0)
	g.AddEdge("/a.d.ts", "/b.d.ts", EdgeImport, 0)

	order := g.SortModules("/index.d.ts")
	names := idsOf(g, order)

	require.Equal(t, []string{"/b.d.ts", "/a.d.ts", "/index.d.ts"}, names)
}

func TestSortModulesToleratesCycles(t *testing.T) {
	g := New()
	g.AddEdge("/index.d.ts", "/m1.d.ts", EdgeImport, 0)
	g.AddEdge("/m1.d.ts", "/m2.d.ts", EdgeImport, 0)
	g.AddEdge("/m2.d.ts", "/m1.d.ts", EdgeImport, 0)

	order := g.SortModules("/index.d.ts")
	names := idsOf(g, order)

	require.Len(t, names, 3)
	seen := map[string]int{}
	for _, n := range names {
		seen[n]++
	}
	for n, c := range seen {
		assert.Equal(t, 1, c, "module %s visited %d times", n, c)
	}
}

func TestSortModulesOrdersSiblingsByEdgeIndex(t *testing.T) {
	g := New()
	g.AddEdge("/index.d.ts", "/b.d.ts", EdgeImport, 1)
	g.AddEdge("/index.d.ts", "/a.d.ts", EdgeImport, 0)

	order := g.SortModules("/index.d.ts")
	names := idsOf(g, order)

	// a (index 0) is visited before b (index 1), so a is emitted first.
	require.Equal(t, []string{"/a.d.ts", "/b.d.ts", "/index.d.ts"}, names)
}

func TestAddModuleIsIdempotent(t *testing.T) {
	g := New()
	first := g.AddModule("/x.d.ts")
	second := g.AddModule("/x.d.ts")
	assert.Equal(t, first, second)
}
