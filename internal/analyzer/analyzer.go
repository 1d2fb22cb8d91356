// Package analyzer implements the per-module semantic analyzer of spec.md
// §4.3 (C3 Module Analyzer): it assigns a fresh mark to every declaration
// and import binding, records which marks each top-level declaration reads,
// and builds the module's import/export tables. It is grounded on
// original_source/src/ast/module_analyzer.rs and scope.rs (the scope stack,
// the "allocate mark, bind name, record reads" pattern) with one deliberate
// departure: scope binding runs as its own pass before any type-reference
// resolution, so declarations may forward-reference one another within a
// module the way ambient `.d.ts` declarations are meant to (TypeScript does
// not require declaration-before-use across top-level declarations).
package analyzer

import (
	"fmt"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/diag"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

type scopeKind uint8

const (
	scopeType scopeKind = iota
	scopeTypeParameter
)

type definition struct {
	mark symbols.Mark
	kind ast.DeclKind
}

// scope mirrors the teacher file's Scope struct: a name table, the reverse
// mark->name map (kept for diagnostics), and the set of marks read while
// this scope was active.
type scope struct {
	kind        scopeKind
	definitions map[string]definition
	markToName  map[symbols.Mark]string
	reads       map[symbols.Mark]struct{}
}

func newScope(kind scopeKind) *scope {
	return &scope{
		kind:        kind,
		definitions: make(map[string]definition),
		markToName:  make(map[symbols.Mark]string),
		reads:       make(map[symbols.Mark]struct{}),
	}
}

// pendingExport is a no-src `export { a as b }` entry whose mark can only be
// resolved once every top-level declaration in the module has been bound.
type pendingExport struct {
	entryIndex   int
	originalName string
}

// Result is everything the analyzer produces for one module.
type Result struct {
	Imports  map[string]*ast.ImportBinding
	Exports  []*ast.ExportEntry
	Warnings []string
}

// Analyzer runs one pass of spec.md §4.3 over a single module's AST.
type Analyzer struct {
	table    *symbols.Table
	moduleID string

	scopes              []*scope
	currentImportIndex  int32
	imports             map[string]*ast.ImportBinding
	exports             []*ast.ExportEntry
	pendingNoSrcExports []pendingExport
	warnings            []string

	// topLevelDefs snapshots the module scope's name->mark table right
	// before analyzeBlock pops it, so pendingNoSrcExports can still resolve
	// a bare `export { a as b }` against a local declaration's mark after
	// pass A's scope has gone out of scope.
	topLevelDefs map[string]symbols.Mark
}

// New returns an Analyzer for one module, sharing the process-wide symbol
// table so marks it allocates are comparable with every other module's.
func New(table *symbols.Table, moduleID string) *Analyzer {
	return &Analyzer{
		table:    table,
		moduleID: moduleID,
		imports:  make(map[string]*ast.ImportBinding),
	}
}

// Analyze walks file's top-level statements and returns the module's import
// table, ordered local exports, and any non-fatal warnings. Errors returned
// are always *diag.Error with Kind == diag.InvariantError.
func (a *Analyzer) Analyze(file *ast.File) (*Result, error) {
	if err := a.analyzeBlock(file.Statements, true); err != nil {
		return nil, err
	}
	for _, p := range a.pendingNoSrcExports {
		mark, ok := a.topLevelDefs[p.originalName]
		if !ok {
			if ib, iok := a.imports[p.originalName]; iok {
				mark, ok = ib.Mark, true
			}
		}
		if !ok {
			mark = a.table.NewMark()
		}
		a.exports[p.entryIndex].Mark = mark
	}
	if err := a.resolveReferences(file.Statements); err != nil {
		return nil, err
	}
	return &Result{Imports: a.imports, Exports: a.exports, Warnings: a.warnings}, nil
}

func (a *Analyzer) pushScope(kind scopeKind) *scope {
	s := newScope(kind)
	a.scopes = append(a.scopes, s)
	return s
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *Analyzer) currentScope() *scope {
	return a.scopes[len(a.scopes)-1]
}

// lookup walks the scope stack innermost to outermost, then falls back to
// this module's import bindings, per spec.md §4.3.
func (a *Analyzer) lookup(name string) (symbols.Mark, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if def, ok := a.scopes[i].definitions[name]; ok {
			return def.mark, true
		}
	}
	if ib, ok := a.imports[name]; ok {
		return ib.Mark, true
	}
	return symbols.InvalidMark, false
}

func (a *Analyzer) declareName(name string, kind ast.DeclKind) (symbols.Mark, error) {
	s := a.currentScope()
	if existing, ok := s.definitions[name]; ok {
		if kind == ast.DeclInterface && existing.kind == ast.DeclInterface {
			return existing.mark, nil // declaration merging
		}
		return symbols.InvalidMark, diag.New(diag.InvariantError, a.moduleID, name,
			fmt.Sprintf("%s redeclares an existing %s in the same scope", kind, existing.kind))
	}
	mark := a.table.NewMark()
	s.definitions[name] = definition{mark: mark, kind: kind}
	s.markToName[mark] = name
	return mark, nil
}

// analyzeBlock runs the declare-and-index pass (pass A) for one list of
// sibling statements in a fresh scope. topLevel gates whether import
// statements and export entries are legal/recorded: only the module's own
// top-level statements populate a.imports/a.exports; namespace bodies get
// their own child scope but do not contribute to the module's public
// surface (a non-goal this repository does not attempt: TypeScript's
// `export` keyword inside ambient namespaces).
func (a *Analyzer) analyzeBlock(stmts []*ast.Stmt, topLevel bool) error {
	a.pushScope(scopeType)
	defer a.popScope()

	for _, stmt := range stmts {
		if err := a.declareAndIndex(stmt, topLevel); err != nil {
			return err
		}
	}

	if topLevel {
		a.topLevelDefs = make(map[string]symbols.Mark, len(a.currentScope().definitions))
		for name, def := range a.currentScope().definitions {
			a.topLevelDefs[name] = def.mark
		}
	}
	return nil
}

func (a *Analyzer) declareAndIndex(stmt *ast.Stmt, topLevel bool) error {
	switch stmt.Kind {
	case ast.StmtImport:
		if topLevel {
			a.declareImport(stmt.ImportNode)
		}
	case ast.StmtExportNonDecl:
		if topLevel {
			a.declareExportNonDecl(stmt)
		}
	case ast.StmtDecl:
		return a.declareDecl(stmt, topLevel)
	}
	return nil
}

func (a *Analyzer) declareImport(imp *ast.Import) {
	index := a.currentImportIndex
	for i := range imp.Specifiers {
		spec := &imp.Specifiers[i]
		mark := a.table.NewMark()
		spec.Local.Mark = mark

		var original ast.ImportOriginal
		switch spec.Kind {
		case ast.ImportSpecifierNamed:
			original = ast.ImportOriginal{Name: spec.Imported}
		case ast.ImportSpecifierDefault:
			original = ast.ImportOriginal{Name: "default"}
		case ast.ImportSpecifierNamespace:
			original = ast.ImportOriginal{IsNamespace: true}
		}

		if _, exists := a.imports[spec.Local.Name]; !exists {
			a.imports[spec.Local.Name] = &ast.ImportBinding{
				Index:     index,
				Mark:      mark,
				LocalName: spec.Local.Name,
				Original:  original,
				Src:       imp.Src,
			}
		}
	}
	a.currentImportIndex++
}

func (a *Analyzer) declareExportNonDecl(stmt *ast.Stmt) {
	hasSrc := stmt.ExportSrc != ""

	var index int32
	if hasSrc {
		index = a.currentImportIndex
	}

	for _, spec := range stmt.ExportSpecifiers {
		switch spec.Kind {
		case ast.ExportName:
			entry := &ast.ExportEntry{
				Kind:         ast.ExportName,
				ExportedName: spec.ExportedName,
				OriginalName: spec.OriginalName,
				HasSrc:       hasSrc,
			}
			if hasSrc {
				entry.Mark = a.table.NewMark()
				entry.Src = stmt.ExportSrc
				entry.Index = index
			}
			a.exports = append(a.exports, entry)
			if !hasSrc {
				a.pendingNoSrcExports = append(a.pendingNoSrcExports, pendingExport{
					entryIndex:   len(a.exports) - 1,
					originalName: spec.OriginalName,
				})
			}
		case ast.ExportAll:
			a.exports = append(a.exports, &ast.ExportEntry{
				Kind:   ast.ExportAll,
				Src:    stmt.ExportSrc,
				HasSrc: true,
				Index:  index,
			})
		case ast.ExportNamespace:
			// `export * as N from "./x"` is represented as a StmtDecl with a
			// nil DeclNode (see declareDecl), not as an ExportNonDecl
			// specifier; this case does not arise from a conforming parser.
		}
	}

	if hasSrc {
		a.currentImportIndex++
	}
}

func (a *Analyzer) declareDecl(stmt *ast.Stmt, topLevel bool) error {
	if stmt.DeclNode == nil {
		return a.declareSyntheticDecl(stmt, topLevel)
	}

	d := stmt.DeclNode
	mark, err := a.declareName(d.Name.Name, d.Kind)
	if err != nil {
		return err
	}
	d.Name.Mark = mark
	stmt.Mark = mark

	if topLevel && stmt.IsExportDecl {
		exportedName := d.Name.Name
		if stmt.ExportForm == ast.ExportFormDefaultDecl {
			exportedName = "default"
		}
		a.exports = append(a.exports, &ast.ExportEntry{
			Kind:         ast.ExportName,
			ExportedName: exportedName,
			OriginalName: d.Name.Name,
			Mark:         mark,
		})
	}
	return nil
}

// declareSyntheticDecl handles the two StmtDecl shapes that carry no
// DeclNode: `export * as N from "./x"` (spec.md §4.3: is_export_decl = true
// even though the statement has no declaration body of its own — its
// content is synthesized later from the flattened exports of "./x") and
// `export default <expr>`, which is warned about and otherwise ignored.
func (a *Analyzer) declareSyntheticDecl(stmt *ast.Stmt, topLevel bool) error {
	if stmt.DefaultExprWarning {
		a.warnings = append(a.warnings, fmt.Sprintf(
			"%s: `export default <expr>` is not valid in a declaration file and was dropped", a.moduleID))
		return nil
	}

	if stmt.ExportForm == ast.ExportFormNamespaceFrom && topLevel {
		index := a.currentImportIndex
		mark := a.table.NewMark()
		stmt.Mark = mark
		a.exports = append(a.exports, &ast.ExportEntry{
			Kind:         ast.ExportNamespace,
			ExportedName: stmt.ExportedAs,
			Mark:         mark,
			Src:          stmt.ExportSrc,
			HasSrc:       true,
			Index:        index,
		})
		a.currentImportIndex++
	}
	return nil
}

// resolveReferences is pass C: now that every top-level name in this module
// is bound, resolve every TsTypeRef, recording reads on both the active
// scope and the owning statement, and recurse into namespace bodies.
func (a *Analyzer) resolveReferences(stmts []*ast.Stmt) error {
	a.pushScope(scopeType)
	defer a.popScope()

	// Re-declare so the scope stack used for lookups during this pass
	// matches the one pass A built (lookups need the names present, not
	// fresh marks, so redeclaring interfaces-merge-safely is harmless: same
	// mark is returned for repeat interface names, first-time declares are
	// unreachable here since pass A already validated uniqueness).
	for _, stmt := range stmts {
		if stmt.Kind == ast.StmtDecl && stmt.DeclNode != nil {
			a.currentScope().definitions[stmt.DeclNode.Name.Name] = definition{mark: stmt.Mark, kind: stmt.DeclNode.Kind}
		}
	}

	for _, stmt := range stmts {
		if stmt.Kind != ast.StmtDecl || stmt.DeclNode == nil {
			continue
		}
		if err := a.resolveDecl(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) resolveDecl(stmt *ast.Stmt) error {
	d := stmt.DeclNode

	pushedTypeParams := len(d.TypeParams) > 0
	if pushedTypeParams {
		a.pushScope(scopeTypeParameter)
		for i := range d.TypeParams {
			mark := a.table.NewMark()
			d.TypeParams[i].Name.Mark = mark
			a.currentScope().definitions[d.TypeParams[i].Name.Name] = definition{mark: mark}
		}
		for i := range d.TypeParams {
			if d.TypeParams[i].Constraint != nil {
				a.resolveTypeRef(d.TypeParams[i].Constraint, stmt)
			}
		}
	}

	for _, ref := range d.Refs {
		a.resolveTypeRef(ref, stmt)
	}

	for _, lit := range d.Literals {
		a.pushScope(scopeType)
		for _, ref := range lit.Refs {
			a.resolveTypeRef(ref, stmt)
		}
		a.popScope()
	}

	if pushedTypeParams {
		a.popScope()
	}

	if d.Kind == ast.DeclNamespace && len(d.Body) > 0 {
		if err := a.analyzeBlock(d.Body, false); err != nil {
			return err
		}
		if err := a.resolveReferences(d.Body); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) resolveTypeRef(ref *ast.TypeRef, owner *ast.Stmt) {
	if mark, ok := a.lookup(ref.Name.Name); ok {
		ref.Name.Mark = mark
		a.currentScope().reads[mark] = struct{}{}
		if owner.Reads == nil {
			owner.Reads = make(map[symbols.Mark]struct{})
		}
		owner.Reads[mark] = struct{}{}
	}
	// A miss means the reference resolves to an ambient global not
	// represented in the module graph; spec.md §4.3 says to do nothing.

	for _, ta := range ref.TypeArgs {
		a.resolveTypeRef(ta, owner)
	}
}
