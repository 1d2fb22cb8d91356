// Package bundler is the driver that wires C1-C8 together end to end, per
// spec.md §2's control-flow summary: seed the worker pool with the entry
// id, assemble the graph from its messages, then sort, flatten export-alls,
// unify marks, tree-shake, and finalize. Grounded on
// original_source/src/dtsup.rs's Dtsup.build/generate_with_graph and on
// evanw-esbuild's pkg/api driver style (a single Options-in, Result-out
// entry point that owns every subsystem).
package bundler

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/h-a-n-a/dts-up/internal/analyzer"
	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/diag"
	"github.com/h-a-n-a/dts-up/internal/dtsmodule"
	"github.com/h-a-n-a/dts-up/internal/graph"
	"github.com/h-a-n-a/dts-up/internal/linker"
	"github.com/h-a-n-a/dts-up/internal/logger"
	"github.com/h-a-n-a/dts-up/internal/resolver"
	"github.com/h-a-n-a/dts-up/internal/symbols"
	"github.com/h-a-n-a/dts-up/internal/treeshake"
	"github.com/h-a-n-a/dts-up/internal/tsprint"
	"github.com/h-a-n-a/dts-up/internal/workerpool"
)

// Options configures one bundling run.
type Options struct {
	// EntryPath is the CLI-supplied entry argument, resolved relative to Cwd.
	EntryPath string
	Cwd       string

	// Workers is the worker-pool size; 0 means runtime.NumCPU(), per
	// spec.md §4.5 (N = num_physical_cpus).
	Workers int

	Log *logger.Log
}

// Result is the bundler's output: the flattened `.d.ts` text plus any
// non-fatal warnings collected along the way (e.g. dropped `export default
// <expr>` statements, spec.md §4.3).
type Result struct {
	Output   string
	Warnings []string
}

// filesystemParser adapts any Parser (tree-sitter today) plus the analyzer
// into workerpool.Parser, and retains each module's raw source bytes for
// the printer.
type filesystemParser struct {
	parse func(path string) (*ast.File, error)
	table *symbols.Table

	mu      sync.Mutex
	sources map[string][]byte
}

// Parser is the minimal surface bundler needs from a concrete `.d.ts`
// parser (internal/tsparse.Parser satisfies it via ParseFile).
type Parser interface {
	ParseFile(path string) (*ast.File, error)
}

func newFilesystemParser(p Parser, table *symbols.Table) *filesystemParser {
	return &filesystemParser{parse: p.ParseFile, table: table, sources: make(map[string][]byte)}
}

func (f *filesystemParser) Parse(_ context.Context, id resolver.ModuleID) (*ast.File, map[string]*ast.ImportBinding, []*ast.ExportEntry, []string, error) {
	raw, err := os.ReadFile(id)
	if err != nil {
		return nil, nil, nil, nil, diag.New(diag.IOError, id, "", err.Error())
	}
	f.mu.Lock()
	f.sources[id] = raw
	f.mu.Unlock()

	file, err := f.parse(id)
	if err != nil {
		return nil, nil, nil, nil, diag.New(diag.ParseError, id, "", err.Error())
	}

	a := analyzer.New(f.table, id)
	res, err := a.Analyze(file)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return file, res.Imports, res.Exports, res.Warnings, nil
}

type discoverer struct {
	mu      sync.Mutex
	modules map[resolver.ModuleID]*dtsmodule.Module
}

func newDiscoverer() *discoverer {
	return &discoverer{modules: make(map[resolver.ModuleID]*dtsmodule.Module)}
}

func (d *discoverer) Discover(file *ast.File, id resolver.ModuleID) []resolver.ModuleID {
	d.mu.Lock()
	m, ok := d.modules[id]
	if !ok {
		m = dtsmodule.New(id, false)
		d.modules[id] = m
	}
	d.mu.Unlock()
	return m.PreAnalyzeSubModules(file)
}

// Build runs the whole pipeline and returns the flattened declaration file.
func Build(ctx context.Context, opts Options, parser Parser) (*Result, error) {
	entryID := resolver.ResolveEntry(opts.EntryPath, opts.Cwd)

	table := symbols.NewTable()
	fsParser := newFilesystemParser(parser, table)
	disc := newDiscoverer()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := workerpool.New(fsParser, disc, workers, 32)

	g := graph.New()
	g.AddModule(entryID)

	var warnings []string
	var warnMu sync.Mutex

	handle := func(msg workerpool.Message) {
		if msg.Module != nil {
			disc.mu.Lock()
			m, ok := disc.modules[msg.Module.ID]
			if !ok {
				m = dtsmodule.New(msg.Module.ID, msg.Module.IsEntry)
				disc.modules[msg.Module.ID] = m
			}
			m.IsEntry = msg.Module.IsEntry
			disc.mu.Unlock()

			// m.SrcToResolvedID is already populated: the worker ran
			// Discover (dtsmodule.Module.PreAnalyzeSubModules) on this same
			// *dtsmodule.Module before emitting NewModule, per spec.md §4.5
			// step 3's "run pre-analysis ... then run full analysis."
			m.SetAnalysis(msg.Module.File, msg.Module.Imports, msg.Module.Exports, msg.Module.Warnings)
			if len(msg.Module.Warnings) > 0 {
				warnMu.Lock()
				warnings = append(warnings, msg.Module.Warnings...)
				warnMu.Unlock()
			}
			return
		}
		if msg.HasDep {
			var kind graph.EdgeKind
			switch msg.Edge {
			case workerpool.EdgeImport:
				kind = graph.EdgeImport
			case workerpool.EdgeExportNamed:
				kind = graph.EdgeExportNamed
			case workerpool.EdgeExportNamespace:
				kind = graph.EdgeExportNamespace
			case workerpool.EdgeExportAll:
				kind = graph.EdgeExportAll
			}
			g.AddEdge(msg.From, msg.To, kind, msg.Index)
		}
	}

	if err := pool.Run(ctx, entryID, handle); err != nil {
		return nil, err
	}

	mods := linker.Modules{}
	disc.mu.Lock()
	for id, m := range disc.modules {
		mods[id] = m
	}
	disc.mu.Unlock()

	entry, ok := mods[entryID]
	if !ok {
		return nil, diag.New(diag.ResolveError, entryID, "", "entry module was never analyzed")
	}

	sorted := g.SortModules(entryID)

	if err := linker.Link(g, mods, sorted, table); err != nil {
		return nil, err
	}
	if err := linker.Verify(mods, sorted, g); err != nil {
		return nil, err
	}

	treeshake.Shake(table, mods, sorted, g, entry)
	out := treeshake.Finalize(table, mods, sorted, g, entry)

	sources := make(tsprint.Sources, len(mods))
	for id := range mods {
		if raw, ok := fsParser.sources[id]; ok {
			sources[id] = raw
		}
	}

	return &Result{
		Output:   tsprint.Print(sources, out),
		Warnings: warnings,
	}, nil
}

