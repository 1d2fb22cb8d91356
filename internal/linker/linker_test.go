package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/dtsmodule"
	"github.com/h-a-n-a/dts-up/internal/graph"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

func newModule(id string) *dtsmodule.Module {
	m := dtsmodule.New(id, false)
	m.File = &ast.File{}
	return m
}

func TestUnifyMarksUnionsNamedImportWithTargetExport(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	a := newModule("/a.d.ts")
	aMark := table.NewMark()
	a.LocalExports = []*ast.ExportEntry{{Kind: ast.ExportName, ExportedName: "A", Mark: aMark}}

	index := newModule("/index.d.ts")
	bindingMark := table.NewMark()
	index.Imports = map[string]*ast.ImportBinding{
		"X": {Mark: bindingMark, Src: "./a", Original: ast.ImportOriginal{Name: "A"}},
	}
	index.SrcToResolvedID = map[string]string{"./a": "/a.d.ts"}

	g.AddEdge("/index.d.ts", "/a.d.ts", graph.EdgeImport, 0)
	mods := Modules{"/a.d.ts": a, "/index.d.ts": index}

	sorted := g.SortModules("/index.d.ts")
	require.NoError(t, Link(g, mods, sorted, table))
	require.NoError(t, Verify(mods, sorted, g))

	assert.True(t, table.Unioned(bindingMark, aMark))
}

func TestExportAllFlatteningCopiesTargetExports(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	a := newModule("/a.d.ts")
	aMark := table.NewMark()
	a.LocalExports = []*ast.ExportEntry{{Kind: ast.ExportName, ExportedName: "A", Mark: aMark}}

	index := newModule("/index.d.ts")

	g.AddEdge("/index.d.ts", "/a.d.ts", graph.EdgeExportAll, 0)
	mods := Modules{"/a.d.ts": a, "/index.d.ts": index}
	sorted := g.SortModules("/index.d.ts")

	require.NoError(t, Link(g, mods, sorted, table))

	re, ok := index.Exports["A"]
	require.True(t, ok)
	assert.Equal(t, aMark, re.Mark)
}

func TestExportAllFlatteningDetectsDuplicateAcrossTwoSources(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	a := newModule("/a.d.ts")
	a.LocalExports = []*ast.ExportEntry{{Kind: ast.ExportName, ExportedName: "T", Mark: table.NewMark()}}
	b := newModule("/b.d.ts")
	b.LocalExports = []*ast.ExportEntry{{Kind: ast.ExportName, ExportedName: "T", Mark: table.NewMark()}}

	index := newModule("/index.d.ts")
	g.AddEdge("/index.d.ts", "/a.d.ts", graph.EdgeExportAll, 0)
	g.AddEdge("/index.d.ts", "/b.d.ts", graph.EdgeExportAll, 1)

	mods := Modules{"/a.d.ts": a, "/b.d.ts": b, "/index.d.ts": index}
	sorted := g.SortModules("/index.d.ts")

	err := Link(g, mods, sorted, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "T")
}

func TestVerifyReportsLinkErrorForMissingExport(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	a := newModule("/a.d.ts")

	index := newModule("/index.d.ts")
	index.Imports = map[string]*ast.ImportBinding{
		"X": {Mark: table.NewMark(), Src: "./a", Original: ast.ImportOriginal{Name: "Missing"}},
	}
	index.SrcToResolvedID = map[string]string{"./a": "/a.d.ts"}

	g.AddEdge("/index.d.ts", "/a.d.ts", graph.EdgeImport, 0)
	mods := Modules{"/a.d.ts": a, "/index.d.ts": index}
	sorted := g.SortModules("/index.d.ts")

	require.NoError(t, Link(g, mods, sorted, table))
	err := Verify(mods, sorted, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}
