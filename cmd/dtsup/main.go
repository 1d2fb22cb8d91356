// Command dtsup bundles a TypeScript declaration entry point and its
// transitive graph of `.d.ts` imports into a single flattened file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/h-a-n-a/dts-up/internal/config"
	"github.com/h-a-n-a/dts-up/internal/exitcode"
	"github.com/h-a-n-a/dts-up/internal/logger"
	"github.com/h-a-n-a/dts-up/pkg/dtsup"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outPath    string
		workers    int
		configPath string
		verbosity  string
	)

	root := &cobra.Command{
		Use:           "dtsup",
		Short:         "Bundle a .d.ts entry point and its imports into one file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bundleCmd := &cobra.Command{
		Use:   "bundle <entry.d.ts>",
		Short: "Bundle the given entry point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd.Context(), args[0], outPath, workers, configPath, verbosity)
		},
	}
	bundleCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path (overrides config)")
	bundleCmd.Flags().IntVarP(&workers, "workers", "w", 0, "worker-pool size (0 = runtime.NumCPU())")
	bundleCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to dtsup.config.yaml")
	bundleCmd.Flags().StringVar(&verbosity, "log-level", "info", "one of info, warning, error, silent")

	root.AddCommand(bundleCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitcode.For(err)
	}
	return exitcode.OK
}

func runBundle(ctx context.Context, entry, outOverride string, workersOverride int, configPath, verbosity string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if configPath == "" {
		configPath = filepath.Join(filepath.Dir(resolveAgainst(cwd, entry)), "dtsup.config.yaml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cfg.Out
	if outOverride != "" {
		out = outOverride
	}
	workers := cfg.Workers
	if workersOverride != 0 {
		workers = workersOverride
	}

	level := parseLevel(verbosity, cfg.LogLevel)
	log := logger.New(os.Stderr, level)

	res, err := dtsup.Bundle(ctx, dtsup.Options{
		Entry:   entry,
		Cwd:     cwd,
		Out:     resolveAgainst(cwd, out),
		Workers: workers,
		Log:     log,
	})
	if err != nil {
		log.Fatal(err)
		return err
	}

	log.Info("wrote %s (%d byte(s))", out, len(res.Output))
	return nil
}

func resolveAgainst(cwd, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cwd, p)
}

func parseLevel(flagValue, configValue string) logger.Level {
	v := flagValue
	if v == "" || v == "info" {
		if configValue != "" {
			v = configValue
		}
	}
	switch v {
	case "warning":
		return logger.LevelWarning
	case "error":
		return logger.LevelError
	case "silent":
		return logger.LevelSilent
	default:
		return logger.LevelInfo
	}
}
