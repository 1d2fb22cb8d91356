// Package treeshake implements spec.md §4.8 (C8 Tree-shaker + Finalizer):
// a fixed-point reachability sweep from the entry module's exported marks,
// followed by the export-decl transform and the synthesis of one terminal
// export statement. Grounded on original_source/src/finalizer/mod.rs (the
// Finalizer's top_level_exports bookkeeping and its Fold-based rewrite of
// export forms) and src/graph/graph.rs's include_with_tree_shaking, with
// one deliberate departure: the reference implementation seeds and sweeps
// in a single pass per module; spec.md §4.8 asks for a worklist iterated to
// a fixed point, so reads discovered by a newly included declaration are
// folded back into the seed set until no module gains a new inclusion.
package treeshake

import (
	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/dtsmodule"
	"github.com/h-a-n-a/dts-up/internal/graph"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

// Shake runs the fixed-point reachability sweep of spec.md §4.8 over every
// module reachable from entry, using table to resolve each statement's
// mark and reads to their union-find roots.
func Shake(table *symbols.Table, mods linker, sorted []graph.MIndex, g *graph.Graph, entry *dtsmodule.Module) {
	live := make(map[symbols.Mark]struct{})
	for name, re := range entry.Exports {
		_ = name
		live[table.FindRoot(re.Mark)] = struct{}{}
	}

	for {
		changed := false
		for _, mi := range sorted {
			m := mods[g.IDOf(mi)]
			newlyRead := m.IncludeStatementsWithMarkSet(table, live)
			for _, mk := range newlyRead {
				if _, ok := live[mk]; !ok {
					live[mk] = struct{}{}
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// linker is the id->Module view treeshake needs; defined locally (rather
// than importing internal/linker) to avoid a dependency cycle, since
// internal/linker.Modules is exactly this shape.
type linker map[string]*dtsmodule.Module

// Declaration is one included, transformed declaration statement ready for
// the external printer (spec.md §4.8 step 2).
type Declaration struct {
	ModuleID string
	Stmt     *ast.Stmt
	// RenameTo overrides the printed declaration name; set for `export
	// default <decl>` (printed under its original name but exported under
	// "default") and left empty otherwise.
	RenameTo string
}

// TerminalExport is one specifier of the synthesized top-level `export {
// ... }` statement (spec.md §4.8 step 3).
type TerminalExport struct {
	OriginalName string
	ExportedName string
}

// Output is what the finalizer hands to the external printer.
type Output struct {
	Declarations []Declaration
	Terminal     []TerminalExport
	Namespaces   []NamespaceExport
}

// NamespaceExport is one `export * as N from "src"` entry, materialized as
// `declare namespace N { ... }` wrapping the collapsed exports of src, per
// spec.md §4.8 step 2's third transform rule.
type NamespaceExport struct {
	Name    string
	Members []TerminalExport
}

// Finalize assembles spec.md §4.8's output: every included declaration in
// sorted (leaf-first) module/source order, each rewritten per the
// export-decl transform, plus the entry's terminal export statement.
func Finalize(table *symbols.Table, mods linker, sorted []graph.MIndex, g *graph.Graph, entry *dtsmodule.Module) Output {
	var out Output
	seenModule := make(map[string]struct{})

	for _, mi := range sorted {
		id := g.IDOf(mi)
		if _, dup := seenModule[id]; dup {
			continue
		}
		seenModule[id] = struct{}{}

		m := mods[id]
		for _, stmt := range m.File.Statements {
			if stmt.Kind != ast.StmtDecl || !stmt.Included || stmt.DeclNode == nil {
				continue
			}
			decl := Declaration{ModuleID: id, Stmt: stmt}
			if stmt.ExportForm == ast.ExportFormDefaultDecl {
				decl.RenameTo = stmt.DeclNode.Name.Name
			}
			out.Declarations = append(out.Declarations, decl)
		}
	}

	for name, re := range entry.Exports {
		if re.IsNamespace {
			out.Namespaces = append(out.Namespaces, NamespaceExport{Name: name, Members: namespaceMembers(mods, re)})
			continue
		}
		originalName := originalNameFor(table, mods, sorted, g, re.Mark)
		out.Terminal = append(out.Terminal, TerminalExport{OriginalName: originalName, ExportedName: name})
	}

	return out
}

// namespaceMembers collapses the named exports of a namespace export's
// originating module into the member list printed inside `declare
// namespace N { ... }` (spec.md §4.8 step 2's third transform rule). Empty
// if the source module could not be recovered (e.g. linking failed to
// populate it), which should not occur once Verify has passed.
func namespaceMembers(mods linker, re dtsmodule.ResolvedExport) []TerminalExport {
	if !re.HasSrc {
		return nil
	}
	target, ok := mods[re.Src]
	if !ok {
		return nil
	}
	var members []TerminalExport
	for name, member := range target.Exports {
		if member.IsNamespace {
			continue
		}
		members = append(members, TerminalExport{
			OriginalName: name,
			ExportedName: name,
		})
	}
	return members
}

// originalNameFor recovers the declaration name bound to mark's equivalence
// class, by scanning every declaration statement of the sorted modules and
// returning the name of the first one whose mark has the same root. It
// returns "" when no declaration matches.
func originalNameFor(table *symbols.Table, mods linker, sorted []graph.MIndex, g *graph.Graph, mark symbols.Mark) string {
	root := table.FindRoot(mark)
	for _, mi := range sorted {
		m := mods[g.IDOf(mi)]
		for _, stmt := range m.File.Statements {
			if stmt.Kind == ast.StmtDecl && stmt.DeclNode != nil && table.FindRoot(stmt.Mark) == root {
				return stmt.DeclNode.Name.Name
			}
		}
	}
	return ""
}
