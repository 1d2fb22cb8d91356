// Package resolver implements the deterministic module-id resolution rules
// of spec.md §4.2 (C2 Path Resolver). There is deliberately no filesystem
// probing here: the corpus this tool targets is pure `.d.ts`, so path
// inference is a pure string transform and the external parser is handed the
// id on faith, failing later if the file is actually absent.
package resolver

import (
	"path"
	"path/filepath"
)

// ModuleID is a canonical absolute path ending in ".d.ts". Two ids denote
// the same module iff they are equal as strings; Resolve is responsible for
// always producing the same string for the same (src, importerDir) pair.
type ModuleID = string

// Resolve computes the canonical module id for an import/export source
// string as written in importerDir, following spec.md §4.2's five rules.
func Resolve(src string, importerDir string) ModuleID {
	joined := normalize(filepath.Join(importerDir, src))

	switch {
	case hasSuffix(joined, ".d.ts"):
		return joined
	case hasSuffix(joined, ".d"):
		return joined + ".ts"
	default:
		return joined + ".d.ts"
	}
}

// ResolveEntry resolves the entry path relative to cwd, per spec.md §6.
func ResolveEntry(entryArg string, cwd string) ModuleID {
	if filepath.IsAbs(entryArg) {
		return Resolve(entryArg, "")
	}
	return Resolve(entryArg, cwd)
}

// Dir returns the directory component of a module id, for resolving that
// module's own relative imports.
func Dir(id ModuleID) string {
	return filepath.Dir(id)
}

func normalize(p string) string {
	return filepath.ToSlash(path.Clean(filepath.ToSlash(p)))
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
