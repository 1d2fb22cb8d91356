// Package dtsmodule defines Module (C4 of spec.md), the container that
// carries one file's statements, import/export tables, and resolved-id
// cache from the worker pool through the linker and tree-shaker to the
// finalizer. Grounded on original_source/src/ast/module.rs's Module struct
// and its two read passes (pre_analyze_sub_modules, generate_statements_
// from_ctxt); our analyzer already builds typed ast.Stmt nodes directly
// rather than re-walking a raw parser AST against a side-table of contexts,
// so generate_statements_from_ctxt has no analogue here.
package dtsmodule

import (
	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/resolver"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

// ResolvedExport is the resolved view of one name in Module.Exports: either
// a plain declaration alias or a namespace export, per spec.md §3's
// `exports: mapping exported_name -> Name | Namespace`.
type ResolvedExport struct {
	IsNamespace bool
	Mark        symbols.Mark
	// Src and HasSrc carry the namespace's originating module id forward
	// through export-all flattening, so the finalizer can still materialize
	// `declare namespace N { ... }` from the right module's collapsed
	// exports even when N was re-exported via an intermediate `export *`.
	Src    string
	HasSrc bool
}

// Module is one node of the module graph.
type Module struct {
	ID      resolver.ModuleID
	IsEntry bool

	File *ast.File

	// Imports and LocalExports are built by the analyzer (internal/analyzer)
	// and never mutated afterward.
	Imports      map[string]*ast.ImportBinding
	LocalExports []*ast.ExportEntry

	// Exports is the resolved view after the linker's export-all flattening
	// (spec.md §4.7 step 1). Populated lazily; nil until the linker runs.
	Exports map[string]ResolvedExport

	// SrcToResolvedID deduplicates resolution of this module's own import/
	// export-from sources against C2.
	SrcToResolvedID map[string]resolver.ModuleID

	Warnings []string
}

// New creates an empty module for id, ready for the analyzer's output to be
// attached via SetAnalysis.
func New(id resolver.ModuleID, isEntry bool) *Module {
	return &Module{
		ID:              id,
		IsEntry:         isEntry,
		SrcToResolvedID: make(map[string]resolver.ModuleID),
	}
}

// SetAnalysis attaches the analyzer's output to this module.
func (m *Module) SetAnalysis(file *ast.File, imports map[string]*ast.ImportBinding, exports []*ast.ExportEntry, warnings []string) {
	m.File = file
	m.Imports = imports
	m.LocalExports = exports
	m.Warnings = warnings
}

// Dir is this module's directory, used to resolve its own relative sources.
func (m *Module) Dir() string {
	return resolver.Dir(m.ID)
}

// PreAnalyzeSubModules walks the module's top-level statements without
// mutating them and returns the set of module ids reachable via this
// module's own imports/export-froms, resolving and caching each source
// string against SrcToResolvedID. Grounded on original_source's
// pre_analyze_sub_modules: a read-only pass so a worker can emit the
// frontier before running the (possibly slower) full analysis.
func (m *Module) PreAnalyzeSubModules(file *ast.File) []resolver.ModuleID {
	dir := m.Dir()
	seen := make(map[resolver.ModuleID]struct{})
	var out []resolver.ModuleID

	add := func(src string) {
		if src == "" {
			return
		}
		id, ok := m.SrcToResolvedID[src]
		if !ok {
			id = resolver.Resolve(src, dir)
			m.SrcToResolvedID[src] = id
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, stmt := range file.Statements {
		switch stmt.Kind {
		case ast.StmtImport:
			add(stmt.ImportNode.Src)
		case ast.StmtExportNonDecl:
			add(stmt.ExportSrc)
		case ast.StmtDecl:
			if stmt.ExportForm == ast.ExportFormNamespaceFrom {
				add(stmt.ExportSrc)
			}
		}
	}
	return out
}

// IncludeStatementsWithMarkSet is the tree-shaking step of spec.md §4.4: for
// every Decl statement whose find_root(mark) is in set, mark it included.
// Returns the marks newly discovered as reads of a statement that just
// transitioned to included, for the caller to fold into the worklist.
func (m *Module) IncludeStatementsWithMarkSet(table *symbols.Table, set map[symbols.Mark]struct{}) []symbols.Mark {
	var newlyRead []symbols.Mark
	for _, stmt := range m.File.Statements {
		if stmt.Kind != ast.StmtDecl || stmt.Included {
			continue
		}
		if stmt.Mark == symbols.InvalidMark {
			continue
		}
		if _, ok := set[table.FindRoot(stmt.Mark)]; !ok {
			continue
		}
		stmt.Included = true
		for mk := range stmt.Reads {
			newlyRead = append(newlyRead, table.FindRoot(mk))
		}
	}
	return newlyRead
}
