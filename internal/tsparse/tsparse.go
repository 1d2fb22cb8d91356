// Package tsparse adapts github.com/tree-sitter/go-tree-sitter +
// github.com/tree-sitter/tree-sitter-typescript into the ast.File shape
// internal/analyzer consumes. spec.md §1 treats the raw `.d.ts` parser as
// an external collaborator out of scope for the core; this package is that
// collaborator, grounded on ingo-eichhorst-agent-readyness's
// internal/parser/treesitter.go (pooled, mutex-serialized *sitter.Parser,
// since tree-sitter parsers are not safe for concurrent Parse calls) and
// its internal/analyzer walking idiom (node.Kind() switch, ChildByFieldName,
// nodeText via StartByte/EndByte slicing).
package tsparse

import (
	"fmt"
	"os"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tstypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/h-a-n-a/dts-up/internal/ast"
)

// Parser parses `.d.ts` source into ast.File using tree-sitter-typescript's
// grammar. Tree-sitter parsers are not thread-safe, so Parse serializes
// internally; spec.md §4.5's workers may therefore call the same *Parser
// concurrently without external locking.
type Parser struct {
	mu   sync.Mutex
	impl *sitter.Parser
}

func New() (*Parser, error) {
	p := sitter.NewParser()
	lang := sitter.NewLanguage(tstypescript.LanguageTypescript())
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set typescript language: %w", err)
	}
	return &Parser{impl: p}, nil
}

func (p *Parser) Close() {
	p.impl.Close()
}

// ParseFile reads path and builds its ast.File. Path is expected to already
// be a resolved ModuleID (an absolute path ending in .d.ts); resolving and
// probing existence is C2's job, not this package's.
func (p *Parser) ParseFile(path string) (*ast.File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(content)
}

// Parse builds an ast.File from raw declaration-file source.
func (p *Parser) Parse(content []byte) (*ast.File, error) {
	p.mu.Lock()
	tree := p.impl.Parse(content, nil)
	p.mu.Unlock()
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter-typescript: parse returned nil tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	b := &builder{src: content}
	file := &ast.File{}
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if stmt := b.statement(child); stmt != nil {
			file.Statements = append(file.Statements, stmt)
		}
	}
	return file, nil
}

type builder struct {
	src []byte
}

func (b *builder) text(n *sitter.Node) string {
	return string(b.src[n.StartByte():n.EndByte()])
}

// statement classifies one top-level tree-sitter node into an ast.Stmt, per
// spec.md §3's three statement shapes. Node kinds follow
// tree-sitter-typescript's grammar.nodeTypes (import_statement,
// export_statement, and the bare declaration kinds).
func (b *builder) statement(n *sitter.Node) *ast.Stmt {
	switch n.Kind() {
	case "import_statement":
		return b.importStatement(n)
	case "export_statement":
		return b.exportStatement(n)
	case "interface_declaration", "type_alias_declaration", "enum_declaration",
		"class_declaration", "abstract_class_declaration", "function_declaration",
		"lexical_declaration", "variable_declaration", "module", "internal_module",
		"ambient_declaration":
		if decl := b.declaration(n); decl != nil {
			return &ast.Stmt{Kind: ast.StmtDecl, DeclNode: decl}
		}
	}
	return nil
}

func (b *builder) importStatement(n *sitter.Node) *ast.Stmt {
	imp := &ast.Import{}
	var src *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "string":
			src = c
		case "import_clause":
			b.fillImportClause(c, imp)
		}
	}
	if src != nil {
		imp.Src = unquote(b.text(src))
	}
	if isImportEquals(n) {
		imp.TsImportEq = true
	}
	return &ast.Stmt{Kind: ast.StmtImport, ImportNode: imp}
}

func isImportEquals(n *sitter.Node) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "=" {
			return true
		}
	}
	return false
}

func (b *builder) fillImportClause(n *sitter.Node, imp *ast.Import) {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier":
			imp.Specifiers = append(imp.Specifiers, ast.ImportSpecifier{
				Kind: ast.ImportSpecifierDefault, Local: ast.Ident{Name: b.text(c)}, Imported: "default",
			})
		case "namespace_import":
			name := lastIdentifier(c, b)
			imp.Specifiers = append(imp.Specifiers, ast.ImportSpecifier{
				Kind: ast.ImportSpecifierNamespace, Local: ast.Ident{Name: name},
			})
		case "named_imports":
			for j := uint(0); j < c.ChildCount(); j++ {
				spec := c.Child(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}
				imp.Specifiers = append(imp.Specifiers, b.importSpecifier(spec))
			}
		}
	}
}

func (b *builder) importSpecifier(n *sitter.Node) ast.ImportSpecifier {
	var names []string
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "identifier" {
			names = append(names, b.text(c))
		}
	}
	switch len(names) {
	case 1:
		return ast.ImportSpecifier{Kind: ast.ImportSpecifierNamed, Local: ast.Ident{Name: names[0]}, Imported: names[0]}
	case 2:
		return ast.ImportSpecifier{Kind: ast.ImportSpecifierNamed, Local: ast.Ident{Name: names[1]}, Imported: names[0]}
	default:
		return ast.ImportSpecifier{}
	}
}

func (b *builder) exportStatement(n *sitter.Node) *ast.Stmt {
	var (
		declChild   *sitter.Node
		starSeen    bool
		clauseChild *sitter.Node
		srcChild    *sitter.Node
		asName      string
		isDefault   bool
		defaultExpr bool
	)

	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "*":
			starSeen = true
		case "string":
			srcChild = c
		case "export_clause":
			clauseChild = c
		case "default":
			isDefault = true
		case "identifier":
			if starSeen {
				asName = b.text(c)
			}
		case "interface_declaration", "type_alias_declaration", "enum_declaration",
			"class_declaration", "abstract_class_declaration", "function_declaration",
			"lexical_declaration", "variable_declaration", "module", "internal_module",
			"ambient_declaration":
			declChild = c
		default:
			if isDefault && declChild == nil && c.Kind() != "export" {
				defaultExpr = true
			}
		}
	}

	switch {
	case starSeen && srcChild != nil && asName != "":
		return &ast.Stmt{
			Kind: ast.StmtDecl, IsExportDecl: true,
			ExportForm: ast.ExportFormNamespaceFrom, ExportedAs: asName, ExportSrc: unquote(b.text(srcChild)),
		}
	case starSeen && srcChild != nil:
		return &ast.Stmt{Kind: ast.StmtExportNonDecl, ExportSrc: unquote(b.text(srcChild)),
			ExportSpecifiers: []ast.ExportSpecifier{{Kind: ast.ExportAll}}}
	case clauseChild != nil:
		var specs []ast.ExportSpecifier
		for i := uint(0); i < clauseChild.ChildCount(); i++ {
			spec := clauseChild.Child(i)
			if spec == nil || spec.Kind() != "export_specifier" {
				continue
			}
			specs = append(specs, b.exportSpecifier(spec))
		}
		src := ""
		if srcChild != nil {
			src = unquote(b.text(srcChild))
		}
		return &ast.Stmt{Kind: ast.StmtExportNonDecl, ExportSpecifiers: specs, ExportSrc: src}
	case declChild != nil:
		decl := b.declaration(declChild)
		if decl == nil {
			return nil
		}
		form := ast.ExportFormDeclare
		if isDefault {
			form = ast.ExportFormDefaultDecl
		}
		return &ast.Stmt{Kind: ast.StmtDecl, DeclNode: decl, IsExportDecl: true, ExportForm: form}
	case defaultExpr:
		return &ast.Stmt{Kind: ast.StmtDecl, DefaultExprWarning: true}
	}
	return nil
}

func (b *builder) exportSpecifier(n *sitter.Node) ast.ExportSpecifier {
	var names []string
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == "identifier" {
			names = append(names, b.text(c))
		}
	}
	switch len(names) {
	case 1:
		return ast.ExportSpecifier{Kind: ast.ExportName, ExportedName: names[0], OriginalName: names[0]}
	case 2:
		return ast.ExportSpecifier{Kind: ast.ExportName, ExportedName: names[1], OriginalName: names[0]}
	default:
		return ast.ExportSpecifier{}
	}
}

// declaration builds a Decl for one of the supported top-level declaration
// kinds. Type-reference extraction is deliberately shallow: it collects
// every `type_identifier`/`nested_type_identifier` reachable inside the
// declaration's type-bearing children, which is sufficient for
// internal/analyzer's reachability sweep (spec.md §4.3's Refs are used only
// to decide what's reachable, never reprinted verbatim — internal/tsprint
// re-derives text from the original node span instead).
func (b *builder) declaration(n *sitter.Node) *ast.Decl {
	kind, name := b.declKindAndName(n)
	if name == "" {
		return nil
	}
	d := &ast.Decl{Kind: kind, Name: ast.Ident{Name: name}, Range: ast.Range{
		Loc: ast.Loc{Start: int32(n.StartByte())},
		Len: int32(n.EndByte() - n.StartByte()),
	}}

	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for i := uint(0); i < tp.ChildCount(); i++ {
			c := tp.Child(i)
			if c == nil || c.Kind() != "type_parameter" {
				continue
			}
			pname := lastIdentifier(c, b)
			var constraint *ast.TypeRef
			if cn := c.ChildByFieldName("constraint"); cn != nil {
				constraint = b.firstTypeRef(cn)
			}
			d.TypeParams = append(d.TypeParams, ast.TypeParam{Name: ast.Ident{Name: pname}, Constraint: constraint})
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		b.collectRefs(body, &d.Refs, &d.Literals, d)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		b.collectRefs(value, &d.Refs, &d.Literals, d)
	}
	if heritage := n.ChildByFieldName("heritage"); heritage != nil {
		b.collectRefs(heritage, &d.Refs, &d.Literals, d)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && (c.Kind() == "extends_clause" || c.Kind() == "extends_type_clause" || c.Kind() == "class_heritage") {
			b.collectRefs(c, &d.Refs, &d.Literals, d)
		}
	}

	if d.Kind == ast.DeclNamespace {
		if body := n.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.ChildCount(); i++ {
				c := body.Child(i)
				if c == nil {
					continue
				}
				if stmt := b.statement(c); stmt != nil {
					d.Body = append(d.Body, stmt)
				}
			}
		}
	}
	return d
}

func (b *builder) declKindAndName(n *sitter.Node) (ast.DeclKind, string) {
	switch n.Kind() {
	case "interface_declaration":
		return ast.DeclInterface, fieldName(n, b)
	case "type_alias_declaration":
		return ast.DeclTypeAlias, fieldName(n, b)
	case "enum_declaration":
		return ast.DeclEnum, fieldName(n, b)
	case "class_declaration", "abstract_class_declaration":
		return ast.DeclClass, fieldName(n, b)
	case "function_declaration":
		return ast.DeclFunction, fieldName(n, b)
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && c.Kind() == "variable_declarator" {
				return ast.DeclVariable, fieldName(c, b)
			}
		}
		return ast.DeclVariable, ""
	case "module", "internal_module":
		return ast.DeclNamespace, moduleName(n, b)
	case "ambient_declaration":
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil {
				if k, name := b.declKindAndName(c); name != "" {
					return k, name
				}
			}
		}
	}
	return ast.DeclInterface, ""
}

func fieldName(n *sitter.Node, b *builder) string {
	if id := n.ChildByFieldName("name"); id != nil {
		return b.text(id)
	}
	return ""
}

func moduleName(n *sitter.Node, b *builder) string {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && (c.Kind() == "identifier" || c.Kind() == "string" || c.Kind() == "nested_identifier") {
			return unquote(b.text(c))
		}
	}
	return ""
}

// collectRefs walks n's subtree, collecting every type_identifier into refs
// (and pushing a fresh ObjectTypeLit onto lits for each object_type
// encountered). It descends into every child, nested declarations included,
// so a namespace's Refs also cover the references of the statements in its
// body (which the caller additionally collects into d.Body).
func (b *builder) collectRefs(n *sitter.Node, refs *[]*ast.TypeRef, lits *[]*ast.ObjectTypeLit, owner *ast.Decl) {
	switch n.Kind() {
	case "type_identifier", "nested_type_identifier":
		*refs = append(*refs, &ast.TypeRef{Name: ast.Ident{Name: lastIdentifier(n, b)}})
		return
	case "object_type":
		lit := &ast.ObjectTypeLit{}
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			b.collectRefs(c, &lit.Refs, lits, owner)
		}
		*lits = append(*lits, lit)
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		b.collectRefs(c, refs, lits, owner)
	}
}

func (b *builder) firstTypeRef(n *sitter.Node) *ast.TypeRef {
	if n.Kind() == "type_identifier" || n.Kind() == "nested_type_identifier" {
		return &ast.TypeRef{Name: ast.Ident{Name: lastIdentifier(n, b)}}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			if ref := b.firstTypeRef(c); ref != nil {
				return ref
			}
		}
	}
	return nil
}

func lastIdentifier(n *sitter.Node, b *builder) string {
	last := ""
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && (c.Kind() == "identifier" || c.Kind() == "type_identifier") {
			last = b.text(c)
		}
	}
	if last == "" {
		return b.text(n)
	}
	return last
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
