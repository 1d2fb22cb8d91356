// Package config loads dtsup.config.yaml, the optional project-level
// configuration file covering output file name, worker-pool sizing, and
// log level; cmd/dtsup's flags can override each of them. Grounded on bennypowers-cem's
// config loading (a plain struct unmarshaled from YAML, defaults applied
// after loading) but using gopkg.in/yaml.v3 directly rather than viper,
// since this tool has no nested subcommand tree that would benefit from
// viper's flag-binding machinery — cobra alone covers §12's CLI surface.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of dtsup.config.yaml. Every field is
// optional; zero values are replaced by Defaults in Load.
type Config struct {
	// Out is the output file path. cmd/dtsup resolves a relative path
	// against the current working directory, not the config file's
	// directory.
	Out string `yaml:"out"`

	// Workers is the worker-pool size (spec.md §4.5's N). Zero means "use
	// runtime.NumCPU()".
	Workers int `yaml:"workers"`

	// LogLevel is one of "info", "warning", "error", "silent".
	LogLevel string `yaml:"logLevel"`
}

// Defaults returns the configuration used when no config file is present.
func Defaults() Config {
	return Config{
		Out:      "dist/index.d.ts",
		Workers:  0,
		LogLevel: "info",
	}
}

// Load reads and parses path, applying Defaults() for any field the file
// leaves at its zero value. A missing file is not an error: Load returns
// Defaults() unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Config{}, err
	}

	if fromFile.Out != "" {
		cfg.Out = fromFile.Out
	}
	if fromFile.Workers != 0 {
		cfg.Workers = fromFile.Workers
	}
	if fromFile.LogLevel != "" {
		cfg.LogLevel = fromFile.LogLevel
	}
	return cfg, nil
}
