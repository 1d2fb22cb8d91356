package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h-a-n-a/dts-up/internal/ast"
)

// stubParser is a minimal stand-in for internal/tsparse.Parser used only by
// these tests: it recognizes the small fixed vocabulary of statement shapes
// the fixture files below use, so the full pipeline (worker pool, graph,
// linker, tree-shaker, printer) can be exercised without tree-sitter.
type stubParser struct{}

func (stubParser) ParseFile(path string) (*ast.File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixture(string(raw)), nil
}

// parseFixture understands exactly four line shapes:
//
//	export interface Name { ... }
//	interface Name { ... }
//	export { A } from "./src"
//	import { A as B } from "./src"
func parseFixture(src string) *ast.File {
	file := &ast.File{}
	offset := 0
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		start := offset
		offset += len(line) + 1
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "import "):
			file.Statements = append(file.Statements, parseImportLine(trimmed))
		case strings.HasPrefix(trimmed, "export { "):
			file.Statements = append(file.Statements, parseExportFromLine(trimmed))
		case strings.HasPrefix(trimmed, "export interface ") || strings.HasPrefix(trimmed, "interface "):
			isExport := strings.HasPrefix(trimmed, "export ")
			body := trimmed
			if isExport {
				body = strings.TrimPrefix(body, "export ")
			}
			name := strings.Fields(strings.TrimPrefix(body, "interface "))[0]
			name = strings.TrimSuffix(name, "{")

			declStart := start
			if isExport {
				declStart += len("export ")
			}
			form := ast.ExportFormNone
			if isExport {
				form = ast.ExportFormDeclare
			}
			file.Statements = append(file.Statements, &ast.Stmt{
				Kind:         ast.StmtDecl,
				IsExportDecl: isExport,
				ExportForm:   form,
				DeclNode: &ast.Decl{
					Kind: ast.DeclInterface,
					Name: ast.Ident{Name: name},
					Range: ast.Range{
						Loc: ast.Loc{Start: int32(declStart)},
						Len: int32(len(line) - (declStart - start)),
					},
				},
			})
		}
	}
	return file
}

func parseImportLine(line string) *ast.Stmt {
	// import { A as B } from "./src"
	inner := line[strings.Index(line, "{")+1 : strings.Index(line, "}")]
	src := strings.Trim(line[strings.Index(line, "from")+len("from"):], " \"")

	parts := strings.Fields(inner)
	var spec ast.ImportSpecifier
	if len(parts) == 3 && parts[1] == "as" {
		spec = ast.ImportSpecifier{Kind: ast.ImportSpecifierNamed, Local: ast.Ident{Name: parts[2]}, Imported: parts[0]}
	} else {
		spec = ast.ImportSpecifier{Kind: ast.ImportSpecifierNamed, Local: ast.Ident{Name: parts[0]}, Imported: parts[0]}
	}
	return &ast.Stmt{Kind: ast.StmtImport, ImportNode: &ast.Import{Src: src, Specifiers: []ast.ImportSpecifier{spec}}}
}

func parseExportFromLine(line string) *ast.Stmt {
	// export { A } from "./src"  OR  export { default as Root } from "./src"
	inner := line[strings.Index(line, "{")+1 : strings.Index(line, "}")]
	src := strings.Trim(line[strings.Index(line, "from")+len("from"):], " \"")

	parts := strings.Fields(inner)
	var spec ast.ExportSpecifier
	if len(parts) == 3 && parts[1] == "as" {
		spec = ast.ExportSpecifier{Kind: ast.ExportName, OriginalName: parts[0], ExportedName: parts[2]}
	} else {
		spec = ast.ExportSpecifier{Kind: ast.ExportName, OriginalName: parts[0], ExportedName: parts[0]}
	}
	return &ast.Stmt{Kind: ast.StmtExportNonDecl, ExportSrc: src, ExportSpecifiers: []ast.ExportSpecifier{spec}}
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuildSingleFileIdentity(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "index.d.ts", "export interface A { x: number }\n")

	res, err := Build(context.Background(), Options{EntryPath: "index.d.ts", Cwd: dir, Workers: 2}, stubParser{})
	require.NoError(t, err)

	assert.Contains(t, res.Output, "interface A")
	assert.Contains(t, res.Output, "export { A };")
}

func TestBuildNamedReExportUnifiesMarks(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "index.d.ts", "export { A } from \"./a\"\n")
	writeFixture(t, dir, "a.d.ts", "export interface A {}\n")

	res, err := Build(context.Background(), Options{EntryPath: "index.d.ts", Cwd: dir, Workers: 2}, stubParser{})
	require.NoError(t, err)

	assert.Contains(t, res.Output, "interface A")
	assert.Contains(t, res.Output, "export { A };")
}

func TestBuildMissingExportIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "index.d.ts", "import { Missing as X } from \"./a\"\nexport interface C { }\n")
	writeFixture(t, dir, "a.d.ts", "interface A {}\n")

	_, err := Build(context.Background(), Options{EntryPath: "index.d.ts", Cwd: dir, Workers: 2}, stubParser{})
	require.Error(t, err)
}
