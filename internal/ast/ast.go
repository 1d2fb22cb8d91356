// Package ast defines the declaration-file AST shapes that flow between the
// parser adapter, the analyzer, the linker and the printer adapter. The core
// bundler never constructs these nodes itself (spec.md treats the raw parser
// as an external collaborator); it only reads and mutates the fields below.
package ast

import "github.com/h-a-n-a/dts-up/internal/symbols"

// Loc is a byte offset into a source file. Kept separate from line/column so
// diagnostics can recompute both lazily, mirroring the teacher's logger.Loc.
type Loc struct {
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

// DeclKind classifies the kind of top-level declaration a Decl statement
// carries. Interfaces may repeat within one module's scope (TS declaration
// merging); every other kind must be unique.
type DeclKind uint8

const (
	DeclInterface DeclKind = iota
	DeclTypeAlias
	DeclEnum
	DeclClass
	DeclFunction
	DeclVariable
	DeclNamespace
)

func (k DeclKind) String() string {
	switch k {
	case DeclInterface:
		return "interface"
	case DeclTypeAlias:
		return "type"
	case DeclEnum:
		return "enum"
	case DeclClass:
		return "class"
	case DeclFunction:
		return "function"
	case DeclVariable:
		return "variable"
	case DeclNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// ExportForm records which surface syntax produced an export so the
// finalizer's transform (spec.md §4.8) can pick the right rewrite.
type ExportForm uint8

const (
	// Not an export at all.
	ExportFormNone ExportForm = iota
	// `export declare X`
	ExportFormDeclare
	// `export default X` where X is a declaration (interface/type/class/function).
	ExportFormDefaultDecl
	// `export * as N from "src"`
	ExportFormNamespaceFrom
)

// Ident is a single identifier occurrence in the AST. The analyzer writes
// the resolved Mark into Mark once it determines what the identifier binds
// to; this is the AST-mutation side-channel spec.md §9 calls out as the
// "mark -> AST linkage" (here, a field on the node, since our AST is mutable
// Go structs rather than an immutable parser AST requiring a side-table).
type Ident struct {
	Name string
	Mark symbols.Mark
	Loc  Loc
}

// TypeRef is a reference to a named type, e.g. `Foo<Bar>` inside another
// declaration's body. The analyzer fills in Name.Mark (spec.md §4.3).
type TypeRef struct {
	Name     Ident
	TypeArgs []*TypeRef
}

// TypeParam is one entry of a declaration's `<T, U extends V>` parameter list.
type TypeParam struct {
	Name       Ident
	Constraint *TypeRef
}

// ObjectTypeLit models a `{ ... }` type literal body. Its Refs are type
// references discovered by walking the literal (spec.md §4.3 pushes a fresh
// TypeScope for the literal's duration); only the references matter for
// tree-shaking, so member names are not separately modeled here.
type ObjectTypeLit struct {
	Refs []*TypeRef
}

// Decl is the body of one interface/type/enum/class/function/variable/
// namespace declaration. Refs is every TsTypeRef reachable from this
// declaration's body (interfaces it extends, types it mentions, a type
// alias's right-hand side, a function's parameter/return types, a
// namespace's nested statements, and so on) prior to import/export
// resolution; the analyzer mutates each TypeRef.Name.Mark in place and
// additionally copies the resolved marks onto the owning Stmt.Reads.
type Decl struct {
	Kind       DeclKind
	Name       Ident
	TypeParams []TypeParam
	Refs       []*TypeRef
	Literals   []*ObjectTypeLit

	// Namespace-only: nested top-level statements analyzed in a child scope.
	Body []*Stmt

	// Range spans the declaration's own text in its module's source,
	// excluding any `export`/`export default` prefix. internal/tsprint
	// slices this range directly rather than re-synthesizing declaration
	// syntax, since the parser discards nothing a faithful printer needs.
	Range Range
}

// ImportSpecifier is one `{ a as b }` / default / namespace binding of a
// single import statement.
type ImportSpecifierKind uint8

const (
	ImportSpecifierNamed ImportSpecifierKind = iota
	ImportSpecifierDefault
	ImportSpecifierNamespace
)

type ImportSpecifier struct {
	Kind ImportSpecifierKind
	// Local is the binding's identifier in this module; its Mark is filled
	// in by the analyzer.
	Local Ident
	// Imported is the name as written on the other side, e.g. `a` in
	// `{ a as b }`. Empty for namespace imports. For default imports this is
	// always "default".
	Imported string
}

type Import struct {
	Src         string
	Specifiers  []ImportSpecifier
	TsImportEq  bool // `import X = require("...")`: discovered, never linked.
}

// ExportSpecifierKind mirrors ast.ExportEntry's three spec.md shapes.
type ExportSpecifierKind uint8

const (
	ExportName ExportSpecifierKind = iota
	ExportNamespace
	ExportAll
)

// ExportSpecifier is one entry of a bare `export { ... } [from "src"]` /
// `export * [as N] from "src"` statement with no own declaration body.
type ExportSpecifier struct {
	Kind         ExportSpecifierKind
	ExportedName string // unused for ExportAll
	OriginalName string // unused for ExportAll; "default" for `{default as X}`
	NamespaceName string // only for ExportNamespace, the `N` in `export * as N`
}

// StmtKind classifies a top-level statement per spec.md §3's Statement type.
type StmtKind uint8

const (
	StmtImport StmtKind = iota
	StmtExportNonDecl
	StmtDecl
)

// Stmt is one top-level statement of a module, in source order. Exactly one
// of the payload fields is populated depending on Kind.
type Stmt struct {
	Kind StmtKind

	// Populated when Kind == StmtImport.
	ImportNode *Import

	// Populated when Kind == StmtExportNonDecl: a bare `export { a as b }`,
	// `export { a as b } from "src"`, or `export * from "src"` with no
	// declaration body of its own.
	ExportSpecifiers []ExportSpecifier
	ExportSrc        string // empty unless re-exported from another module

	// Populated when Kind == StmtDecl.
	DeclNode *Decl

	// Tree-shaking / linking bookkeeping, written by the analyzer and later
	// mutated by the linker and tree-shaker. Meaningful only when
	// Kind == StmtDecl.
	Mark         symbols.Mark
	Reads        map[symbols.Mark]struct{}
	IsExportDecl bool
	ExportForm   ExportForm
	ExportedAs   string // exported_name when ExportForm != ExportFormNone
	Included     bool

	// Source-order index among import/export-from statements only, shared
	// between imports and source-bearing re-exports (spec.md §4.2/§4.3).
	ImportIndex int32

	// DefaultExprWarning is set by the parser for `export default <expr>`,
	// which spec.md §4.3 says "is rejected with a warning (not valid in
	// .d.ts)". Kind is StmtDecl and DeclNode is nil in this case: there is no
	// declaration to bind, the statement is never included, and no export
	// entry is produced for it.
	DefaultExprWarning bool
}

// File is the top-level parse result for one module: an ordered sequence of
// top-level statements. The parser adapter (internal/tsparse) builds this;
// internal/dtsmodule.Module wraps it with resolved ids and cross-module
// linking state.
type File struct {
	Statements []*Stmt
}

// ImportOriginal is the "a" in a module's `import { a as b }` (or the
// namespace marker for `import * as b`), per spec.md §3's
// `Name(string) | Namespace` ImportBinding.original.
type ImportOriginal struct {
	IsNamespace bool
	Name        string // empty when IsNamespace; "default" for default imports
}

// ImportBinding is one local name introduced by an import statement, per
// spec.md §3. The analyzer allocates LocalName's Mark; Index is the ordinal
// of the owning import statement among this module's source-bearing
// import/export statements.
type ImportBinding struct {
	Index     int32
	Mark      symbols.Mark
	LocalName string
	Original  ImportOriginal
	Src       string
}

// ExportEntry is one entry of a module's local_exports, per spec.md §3. Only
// the fields relevant to Kind are meaningful:
//   - ExportName:      ExportedName, OriginalName, Mark, Src (optional), Index (iff Src set)
//   - ExportNamespace: ExportedName, Mark, Src, Index
//   - ExportAll:       Src, Index
type ExportEntry struct {
	Kind         ExportSpecifierKind
	ExportedName string
	OriginalName string
	Mark         symbols.Mark
	Src          string
	HasSrc       bool
	Index        int32
}
