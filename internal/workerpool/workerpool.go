// Package workerpool implements the parallel module-graph builder of
// spec.md §4.5/§5 (C5 Worker Pool): a fixed-size pool of goroutines that
// claim module ids from a shared LIFO, parse and analyze each module, and
// post WorkerMessage values on a bounded channel for the driver to
// assemble into a graph. Grounded on original_source/src/graph/
// async_worker.rs's AsyncWorker (modules_to_work LIFO, worked_modules set,
// idle-count coordination) translated into goroutines/channels/sync
// primitives, and on the teacher's (evanw-esbuild) preference for explicit
// goroutine pools over an external scheduler; golang.org/x/sync/errgroup
// supplies the fan-out/fan-in and first-error propagation the teacher's own
// bundler driver uses for its parallel parse phase.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/diag"
	"github.com/h-a-n-a/dts-up/internal/resolver"
)

// EdgeKind mirrors internal/graph's edge type without importing it, so the
// two packages stay independent; internal/bundler translates one into the
// other.
type EdgeKind uint8

const (
	EdgeImport EdgeKind = iota
	EdgeExportNamed
	EdgeExportNamespace
	EdgeExportAll
)

// Message is the sum type workers post to the driver, per spec.md §4.5.
type Message struct {
	// NewModule payload; nil for NewDependency messages.
	Module *ModuleResult

	// NewDependency payload; zero value for NewModule messages.
	From, To resolver.ModuleID
	Edge     EdgeKind
	Index    int32
	HasDep   bool
}

// ModuleResult is everything a worker produces for one claimed module id:
// the parsed+analyzed file plus the analyzer's import/export tables. The
// driver wraps this into a *dtsmodule.Module; workerpool does not depend on
// dtsmodule to avoid a import cycle (dtsmodule has no need to know about
// the pool).
type ModuleResult struct {
	ID       resolver.ModuleID
	IsEntry  bool
	File     *ast.File
	Imports  map[string]*ast.ImportBinding
	Exports  []*ast.ExportEntry
	Warnings []string
}

// Parser parses and analyzes one module's source, already resolved to id.
// internal/bundler supplies an implementation that composes
// internal/tsparse and internal/analyzer.
type Parser interface {
	Parse(ctx context.Context, id resolver.ModuleID) (*ast.File, map[string]*ast.ImportBinding, []*ast.ExportEntry, []string, error)
}

// SubModuleDiscoverer returns the ids a module's own statements reference,
// per spec.md §4.4's pre_analyze_sub_modules. internal/bundler supplies one
// backed by dtsmodule.Module.PreAnalyzeSubModules.
type SubModuleDiscoverer interface {
	Discover(file *ast.File, id resolver.ModuleID) []resolver.ModuleID
}

// Pool runs spec.md §4.5's worker loop.
type Pool struct {
	parser    Parser
	discover  SubModuleDiscoverer
	workers   int
	queueCap  int

	mu        sync.Mutex
	pending   []resolver.ModuleID // LIFO: push/pop at the back
	claimed   map[resolver.ModuleID]struct{}

	idle int32 // atomic
}

// New builds a Pool with workers goroutines and a response channel of
// capacity queueCap, per spec.md §4.5 (N = num_physical_cpus, capacity 32
// in the reference design; callers choose both explicitly here since Go
// has no portable physical-core count without an extra dependency the rest
// of the corpus does not otherwise need).
func New(parser Parser, discover SubModuleDiscoverer, workers, queueCap int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 1
	}
	return &Pool{
		parser:   parser,
		discover: discover,
		workers:  workers,
		queueCap: queueCap,
		claimed:  make(map[resolver.ModuleID]struct{}),
	}
}

// Run seeds the queue with entryID and runs the pool to completion,
// streaming every Message to handle as it arrives. handle is called from a
// single goroutine (the one running Run), so it may mutate driver-owned
// state without its own locking. Returns the first parse/resolve error
// encountered, if any; per spec.md §5, a failing worker aborts the run
// after in-flight claims finish but Run still drains whatever was already
// queued on the channel before returning the error.
func (p *Pool) Run(ctx context.Context, entryID resolver.ModuleID, handle func(Message)) error {
	p.pending = append(p.pending, entryID)
	p.claimed[entryID] = struct{}{}
	atomic.StoreInt32(&p.idle, int32(p.workers))

	msgs := make(chan Message, p.queueCap)
	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		group.Go(func() error {
			return p.workerLoop(gctx, entryID, msgs)
		})
	}

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(msgs)
		close(done)
	}()

	for msg := range msgs {
		handle(msg)
	}
	<-done

	if err := group.Wait(); err != nil {
		return err
	}
	return nil
}

func (p *Pool) workerLoop(ctx context.Context, entryID resolver.ModuleID, out chan<- Message) error {
	for {
		atomic.AddInt32(&p.idle, -1)

		for {
			id, ok := p.claimNext()
			if !ok {
				break
			}
			if err := p.processOne(ctx, id, id == entryID, out); err != nil {
				atomic.AddInt32(&p.idle, 1)
				return err
			}
		}

		atomic.AddInt32(&p.idle, 1)

		if p.hasPending() {
			continue
		}
		if int(atomic.LoadInt32(&p.idle)) == p.workers {
			return nil
		}
		// Another worker may still push work; loop and re-check.
	}
}

func (p *Pool) claimNext() (resolver.ModuleID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.pending)
	if n == 0 {
		return "", false
	}
	id := p.pending[n-1]
	p.pending = p.pending[:n-1]
	return id, true
}

func (p *Pool) hasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0
}

func (p *Pool) pushUnclaimed(ids []resolver.ModuleID) []resolver.ModuleID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fresh []resolver.ModuleID
	for _, id := range ids {
		if _, ok := p.claimed[id]; ok {
			continue
		}
		p.claimed[id] = struct{}{}
		p.pending = append(p.pending, id)
		fresh = append(fresh, id)
	}
	return fresh
}

func (p *Pool) processOne(ctx context.Context, id resolver.ModuleID, isEntry bool, out chan<- Message) error {
	file, imports, exports, warnings, err := p.parser.Parse(ctx, id)
	if err != nil {
		if _, ok := err.(*diag.Error); ok {
			return err
		}
		return diag.New(diag.ParseError, id, "", err.Error())
	}

	discovered := p.discover.Discover(file, id)
	p.pushUnclaimed(discovered)

	select {
	case out <- Message{Module: &ModuleResult{
		ID: id, IsEntry: isEntry, File: file, Imports: imports, Exports: exports, Warnings: warnings,
	}}:
	case <-ctx.Done():
		return ctx.Err()
	}

	dir := resolver.Dir(id)
	for _, ib := range imports {
		target := resolver.Resolve(ib.Src, dir)
		if err := send(ctx, out, Message{From: id, To: target, Edge: EdgeImport, Index: ib.Index, HasDep: true}); err != nil {
			return err
		}
	}
	for _, ee := range exports {
		if !ee.HasSrc {
			continue
		}
		kind := EdgeExportNamed
		if ee.Kind == ast.ExportNamespace {
			kind = EdgeExportNamespace
		} else if ee.Kind == ast.ExportAll {
			kind = EdgeExportAll
		}
		target := resolver.Resolve(ee.Src, dir)
		if err := send(ctx, out, Message{From: id, To: target, Edge: kind, Index: ee.Index, HasDep: true}); err != nil {
			return err
		}
	}
	return nil
}

func send(ctx context.Context, out chan<- Message, msg Message) error {
	select {
	case out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
