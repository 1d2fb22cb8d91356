// Package linker implements spec.md §4.7 (C7 Linker): export-all
// flattening followed by mark unification via the union-find in
// internal/symbols. Grounded on original_source/src/graph/graph.rs's
// link_export_all/link_modules (the two-pass, sorted-then-reverse-sorted
// walk) and on evanw-esbuild's internal/linker.go naming
// (addExportsForExportStar, matchImportWithExport) for the step names and
// error shapes, though esbuild links parts rather than whole declarations;
// our granularity is the declaration, per spec.md.
package linker

import (
	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/diag"
	"github.com/h-a-n-a/dts-up/internal/dtsmodule"
	"github.com/h-a-n-a/dts-up/internal/graph"
	"github.com/h-a-n-a/dts-up/internal/resolver"
	"github.com/h-a-n-a/dts-up/internal/symbols"
)

// Modules gives the linker read/write access to the driver's id->Module
// map without owning it, per spec.md §9's ownership note.
type Modules map[resolver.ModuleID]*dtsmodule.Module

// Link runs both steps of spec.md §4.7 over sorted (step 1 leaf-first,
// step 2 root-first), using g to resolve export-all/export-named/namespace edges and
// table to perform mark unification.
func Link(g *graph.Graph, mods Modules, sorted []graph.MIndex, table *symbols.Table) error {
	if err := flattenExportAll(g, mods, sorted); err != nil {
		return err
	}
	unifyMarks(g, mods, sorted, table)
	return nil
}

// flattenExportAll is step 1: walk leaf-first, and for every ExportAll edge
// R -> E, copy every resolved export of E into R. E is always fully
// expanded by the time R is processed because sorted is leaf-first.
func flattenExportAll(g *graph.Graph, mods Modules, sorted []graph.MIndex) error {
	for _, mi := range sorted {
		id := g.IDOf(mi)
		m := mods[id]
		if m.Exports == nil {
			m.Exports = make(map[string]dtsmodule.ResolvedExport)
		}
		// Seed with this module's own Name/Namespace local exports before
		// folding in any export-all sources, so direct declarations and
		// re-exports of the same name are visible to the conflict check
		// below regardless of edge emission order.
		for _, e := range m.LocalExports {
			switch e.Kind {
			case ast.ExportName:
				m.Exports[e.ExportedName] = dtsmodule.ResolvedExport{Mark: e.Mark}
			case ast.ExportNamespace:
				targetID, _ := m.SrcToResolvedID[e.Src]
				m.Exports[e.ExportedName] = dtsmodule.ResolvedExport{
					IsNamespace: true, Mark: e.Mark, Src: targetID, HasSrc: targetID != "",
				}
			}
		}

		// sourceOf tracks which upstream module last contributed each name,
		// purely for the DuplicateExportError message.
		sourceOf := make(map[string]resolver.ModuleID)

		for _, edge := range g.EdgesFrom(mi) {
			if edge.Kind != graph.EdgeExportAll {
				continue
			}
			targetID := g.IDOf(edge.To)
			target := mods[targetID]
			for name, re := range target.Exports {
				if existingSrc, ok := sourceOf[name]; ok {
					return diag.New(diag.DuplicateExportError, id, name,
						"exported by both "+existingSrc+" and "+targetID)
				}
				if _, already := m.Exports[name]; already {
					// Already provided directly by this module or a prior
					// export-all; direct exports win, matching the local
					// seeding done above.
					continue
				}
				m.Exports[name] = re
				sourceOf[name] = targetID
			}
		}
	}
	return nil
}

// unifyMarks is step 2: walk root-first (reverse sorted order) and union
// every import binding / re-export's mark with the mark of the export it
// actually names.
func unifyMarks(g *graph.Graph, mods Modules, sorted []graph.MIndex, table *symbols.Table) {
	for i := len(sorted) - 1; i >= 0; i-- {
		id := g.IDOf(sorted[i])
		m := mods[id]

		for _, ib := range m.Imports {
			if ib.Original.IsNamespace {
				// Namespace imports are not unified at this stage
				// (spec.md §9: left as an open question).
				continue
			}
			targetID, ok := m.SrcToResolvedID[ib.Src]
			if !ok {
				continue
			}
			target, ok := mods[targetID]
			if !ok {
				continue
			}
			re, ok := target.Exports[ib.Original.Name]
			if !ok {
				continue // reported by Verify, see below
			}
			table.Union(ib.Mark, re.Mark)
		}

		for _, e := range m.LocalExports {
			if e.Kind != ast.ExportName || !e.HasSrc {
				continue
			}
			targetID, ok := m.SrcToResolvedID[e.Src]
			if !ok {
				continue
			}
			target, ok := mods[targetID]
			if !ok {
				continue
			}
			re, ok := target.Exports[e.OriginalName]
			if !ok {
				continue
			}
			table.Union(e.Mark, re.Mark)
		}
	}
}

// Verify reports the first missing-export LinkError found among sorted's
// modules, per spec.md §4.7 step 2's "else, emit a fatal error" clause. Run
// after unifyMarks, separately, so the happy path never pays for building
// error strings.
func Verify(mods Modules, sorted []graph.MIndex, g *graph.Graph) error {
	for _, mi := range sorted {
		id := g.IDOf(mi)
		m := mods[id]

		for localName, ib := range m.Imports {
			if ib.Original.IsNamespace {
				continue
			}
			targetID, ok := m.SrcToResolvedID[ib.Src]
			if !ok {
				return diag.New(diag.ResolveError, id, ib.Src, "import source did not resolve to a known module")
			}
			target, ok := mods[targetID]
			if !ok {
				return diag.New(diag.ResolveError, id, ib.Src, "import source did not resolve to a known module")
			}
			if _, ok := target.Exports[ib.Original.Name]; !ok {
				return diag.New(diag.LinkError, id, localName,
					"no export named "+ib.Original.Name+" in "+targetID)
			}
		}

		for _, e := range m.LocalExports {
			if e.Kind != ast.ExportName || !e.HasSrc {
				continue
			}
			targetID, ok := m.SrcToResolvedID[e.Src]
			if !ok {
				return diag.New(diag.ResolveError, id, e.Src, "re-export source did not resolve to a known module")
			}
			target, ok := mods[targetID]
			if !ok {
				return diag.New(diag.ResolveError, id, e.Src, "re-export source did not resolve to a known module")
			}
			if _, ok := target.Exports[e.OriginalName]; !ok {
				return diag.New(diag.LinkError, id, e.OriginalName,
					"no export named "+e.OriginalName+" in "+targetID)
			}
		}
	}
	return nil
}
