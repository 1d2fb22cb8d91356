package treeshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/dtsmodule"
	"github.com/h-a-n-a/dts-up/internal/graph"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

func TestShakeIncludesOnlyReachableDeclarations(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	a := dtsmodule.New("/a.d.ts", false)
	aMark, bMark := table.NewMark(), table.NewMark()
	a.File = &ast.File{Statements: []*ast.Stmt{
		{Kind: ast.StmtDecl, Mark: aMark, DeclNode: &ast.Decl{Kind: ast.DeclInterface, Name: ast.Ident{Name: "A"}}},
		{Kind: ast.StmtDecl, Mark: bMark, DeclNode: &ast.Decl{Kind: ast.DeclInterface, Name: ast.Ident{Name: "B"}}},
	}}

	index := dtsmodule.New("/index.d.ts", true)
	index.Exports = map[string]dtsmodule.ResolvedExport{"A": {Mark: aMark}}
	index.File = &ast.File{}

	g.AddModule("/index.d.ts")
	g.AddModule("/a.d.ts")
	idxA, _ := g.IndexOf("/a.d.ts")
	idxIndex, _ := g.IndexOf("/index.d.ts")
	sorted := []graph.MIndex{idxA, idxIndex} // leaf-first, as SortModules would emit

	mods := map[string]*dtsmodule.Module{"/a.d.ts": a, "/index.d.ts": index}
	Shake(table, mods, sorted, g, index)

	assert.True(t, a.File.Statements[0].Included)
	assert.False(t, a.File.Statements[1].Included)
}

func TestShakePropagatesThroughReads(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	aMark := table.NewMark()
	cMark := table.NewMark()

	a := dtsmodule.New("/a.d.ts", false)
	a.File = &ast.File{Statements: []*ast.Stmt{
		{
			Kind:     ast.StmtDecl,
			Mark:     aMark,
			DeclNode: &ast.Decl{Kind: ast.DeclInterface, Name: ast.Ident{Name: "A"}},
			Reads:    map[symbols.Mark]struct{}{cMark: {}},
		},
		{Kind: ast.StmtDecl, Mark: cMark, DeclNode: &ast.Decl{Kind: ast.DeclInterface, Name: ast.Ident{Name: "C"}}},
	}}

	index := dtsmodule.New("/index.d.ts", true)
	index.Exports = map[string]dtsmodule.ResolvedExport{"A": {Mark: aMark}}
	index.File = &ast.File{}

	g.AddModule("/a.d.ts")
	g.AddModule("/index.d.ts")
	idxA, _ := g.IndexOf("/a.d.ts")
	idxIndex, _ := g.IndexOf("/index.d.ts")
	sorted := []graph.MIndex{idxA, idxIndex}

	mods := map[string]*dtsmodule.Module{"/a.d.ts": a, "/index.d.ts": index}
	Shake(table, mods, sorted, g, index)

	assert.True(t, a.File.Statements[0].Included)
	assert.True(t, a.File.Statements[1].Included, "C must be pulled in because A reads it")
}

func TestFinalizeProducesTerminalExportWithOriginalName(t *testing.T) {
	table := symbols.NewTable()
	g := graph.New()

	aMark := table.NewMark()
	a := dtsmodule.New("/a.d.ts", false)
	stmt := &ast.Stmt{Kind: ast.StmtDecl, Mark: aMark, Included: true, DeclNode: &ast.Decl{Kind: ast.DeclInterface, Name: ast.Ident{Name: "A"}}}
	a.File = &ast.File{Statements: []*ast.Stmt{stmt}}

	index := dtsmodule.New("/index.d.ts", true)
	index.Exports = map[string]dtsmodule.ResolvedExport{"Root": {Mark: aMark}}
	index.File = &ast.File{}

	g.AddModule("/a.d.ts")
	g.AddModule("/index.d.ts")
	idxA, _ := g.IndexOf("/a.d.ts")
	idxIndex, _ := g.IndexOf("/index.d.ts")
	sorted := []graph.MIndex{idxA, idxIndex}

	mods := map[string]*dtsmodule.Module{"/a.d.ts": a, "/index.d.ts": index}
	out := Finalize(table, mods, sorted, g, index)

	require.Len(t, out.Declarations, 1)
	require.Len(t, out.Terminal, 1)
	assert.Equal(t, "A", out.Terminal[0].OriginalName)
	assert.Equal(t, "Root", out.Terminal[0].ExportedName)
}
