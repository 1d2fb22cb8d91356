package dtsmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

func TestPreAnalyzeSubModulesCollectsImportAndExportFromSources(t *testing.T) {
	file := &ast.File{Statements: []*ast.Stmt{
		{Kind: ast.StmtImport, ImportNode: &ast.Import{Src: "./a"}},
		{Kind: ast.StmtExportNonDecl, ExportSrc: "./b"},
		{Kind: ast.StmtDecl, ExportForm: ast.ExportFormNamespaceFrom, ExportSrc: "./c"},
		{Kind: ast.StmtDecl, DeclNode: &ast.Decl{Name: ast.Ident{Name: "Local"}}},
	}}

	m := New("/proj/index.d.ts", true)
	ids := m.PreAnalyzeSubModules(file)

	require.Len(t, ids, 3)
	assert.Equal(t, "/proj/a.d.ts", ids[0])
	assert.Equal(t, "/proj/b.d.ts", ids[1])
	assert.Equal(t, "/proj/c.d.ts", ids[2])
	assert.Len(t, m.SrcToResolvedID, 3)
}

func TestPreAnalyzeSubModulesDeduplicatesRepeatedSource(t *testing.T) {
	file := &ast.File{Statements: []*ast.Stmt{
		{Kind: ast.StmtImport, ImportNode: &ast.Import{Src: "./a"}},
		{Kind: ast.StmtExportNonDecl, ExportSrc: "./a"},
	}}

	m := New("/proj/index.d.ts", true)
	ids := m.PreAnalyzeSubModules(file)

	assert.Len(t, ids, 1)
}

func TestIncludeStatementsWithMarkSetMarksIncludedAndCollectsReads(t *testing.T) {
	table := symbols.NewTable()
	declMark := table.NewMark()
	readMark := table.NewMark()

	stmt := &ast.Stmt{
		Kind:  ast.StmtDecl,
		Mark:  declMark,
		Reads: map[symbols.Mark]struct{}{readMark: {}},
	}
	m := New("/proj/index.d.ts", true)
	m.File = &ast.File{Statements: []*ast.Stmt{stmt}}

	set := map[symbols.Mark]struct{}{declMark: {}}
	newlyRead := m.IncludeStatementsWithMarkSet(table, set)

	assert.True(t, stmt.Included)
	require.Len(t, newlyRead, 1)
	assert.Equal(t, readMark, newlyRead[0])
}

func TestIncludeStatementsWithMarkSetSkipsAlreadyIncluded(t *testing.T) {
	table := symbols.NewTable()
	declMark := table.NewMark()

	stmt := &ast.Stmt{Kind: ast.StmtDecl, Mark: declMark, Included: true}
	m := New("/proj/index.d.ts", true)
	m.File = &ast.File{Statements: []*ast.Stmt{stmt}}

	newlyRead := m.IncludeStatementsWithMarkSet(table, map[symbols.Mark]struct{}{declMark: {}})
	assert.Empty(t, newlyRead)
}
