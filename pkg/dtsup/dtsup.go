// Package dtsup is the public entry point for embedding the bundler in
// another Go program, mirroring evanw-esbuild's pkg/api: a small façade
// over internal/bundler that owns process-level concerns (opening the
// tree-sitter parser, writing the result to disk) the internal packages
// deliberately stay ignorant of.
package dtsup

import (
	"context"
	"os"
	"path/filepath"

	"github.com/h-a-n-a/dts-up/internal/bundler"
	"github.com/h-a-n-a/dts-up/internal/logger"
	"github.com/h-a-n-a/dts-up/internal/tsparse"
)

// Options is the public surface for one bundling run; it is the CLI's
// (cmd/dtsup) and any embedder's only way to configure a Build.
type Options struct {
	// Entry is the entry `.d.ts` path, resolved relative to Cwd if relative.
	Entry string
	// Cwd defaults to os.Getwd() when empty.
	Cwd string
	// Out is the output file path. Its parent directories are created if
	// missing.
	Out string
	// Workers is the worker-pool size; 0 selects runtime.NumCPU().
	Workers int

	Log *logger.Log
}

// Result mirrors bundler.Result for callers that don't want to import
// internal packages.
type Result struct {
	Output   string
	Warnings []string
}

// Bundle runs one end-to-end build and writes Output to opts.Out.
func Bundle(ctx context.Context, opts Options) (*Result, error) {
	cwd := opts.Cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	log := opts.Log
	if log == nil {
		log = logger.New(os.Stderr, logger.LevelInfo)
	}

	parser, err := tsparse.New()
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	res, err := bundler.Build(ctx, bundler.Options{
		EntryPath: opts.Entry,
		Cwd:       cwd,
		Workers:   opts.Workers,
		Log:       log,
	}, parser)
	if err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		log.Warn("%s", w)
	}

	if opts.Out != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Out), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(opts.Out, []byte(res.Output), 0o644); err != nil {
			return nil, err
		}
	}

	return &Result{Output: res.Output, Warnings: res.Warnings}, nil
}
