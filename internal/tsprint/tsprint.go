// Package tsprint renders a treeshake.Output into the single flattened
// `.d.ts` text spec.md §6 calls for (the reachable declarations in sort
// order followed by one synthesized `export { ... }` statement). spec.md
// §1 treats the printer as an external collaborator; unlike the parser
// side (internal/tsparse), no example repo in this corpus prints
// TypeScript source from a generic AST — the pack's printer-shaped code
// (evanw-esbuild's js_printer, various template engines) all targets a
// different source language or output format, so there is no third-party
// dep to ground this package on. Declarations are re-emitted by slicing
// their original byte range (ast.Decl.Range, populated by
// internal/tsparse) rather than re-serializing a structural AST, which
// keeps this package a thin standard-library wrapper around
// strings.Builder as spec.md §1 intends.
package tsprint

import (
	"fmt"
	"strings"

	"github.com/h-a-n-a/dts-up/internal/ast"
	"github.com/h-a-n-a/dts-up/internal/treeshake"
)

// Sources gives the printer the original bytes of every module in the
// build, keyed by module id, so each declaration can be rendered by
// slicing its Range out of the module it came from.
type Sources map[string][]byte

// Print renders out into the final `.d.ts` text.
func Print(sources Sources, out treeshake.Output) string {
	var b strings.Builder

	for _, decl := range out.Declarations {
		b.WriteString(renderDecl(sources[decl.ModuleID], decl.Stmt, decl.RenameTo))
		b.WriteString("\n\n")
	}

	for _, ns := range out.Namespaces {
		b.WriteString("declare namespace ")
		b.WriteString(ns.Name)
		b.WriteString(" {\n")
		for _, m := range ns.Members {
			if m.OriginalName == m.ExportedName {
				fmt.Fprintf(&b, "    export { %s };\n", m.OriginalName)
			} else {
				fmt.Fprintf(&b, "    export { %s as %s };\n", m.OriginalName, m.ExportedName)
			}
		}
		b.WriteString("}\n\n")
	}

	if len(out.Terminal) > 0 {
		specs := make([]string, len(out.Terminal))
		for i, t := range out.Terminal {
			if t.OriginalName == t.ExportedName {
				specs[i] = t.OriginalName
			} else {
				specs[i] = fmt.Sprintf("%s as %s", t.OriginalName, t.ExportedName)
			}
		}
		b.WriteString("export { ")
		b.WriteString(strings.Join(specs, ", "))
		b.WriteString(" };\n")
	}

	return b.String()
}

// renderDecl applies spec.md §4.8 step 2's export-decl transform to one
// declaration's verbatim source text: `export declare X` is printed as
// `declare X`; `export default <decl>` is printed under its own name with
// a `declare` prefix, since the "default" alias is carried separately by
// the terminal export statement, not by the declaration's own text.
// `declare` is only added for kinds that need it as a standalone ambient
// statement (function/var/const/let/class/enum/namespace) — `interface`
// and `type` are always valid ambient syntax on their own and must never
// gain one. renameTo, when set and different from the declaration's own
// name, substitutes a new identifier for the declared name wherever it
// appears as the declaration's own name token.
func renderDecl(src []byte, stmt *ast.Stmt, renameTo string) string {
	d := stmt.DeclNode
	text := string(src[d.Range.Loc.Start : d.Range.Loc.Start+d.Range.Len])

	if renameTo != "" && renameTo != d.Name.Name {
		text = renameIdent(text, d.Name.Name, renameTo)
	}

	needsDeclare := declKindNeedsDeclareKeyword(d.Kind)

	switch stmt.ExportForm {
	case ast.ExportFormDeclare, ast.ExportFormDefaultDecl:
		if needsDeclare && !strings.HasPrefix(text, "declare ") {
			return "declare " + text
		}
		return text
	default:
		// Not an export at all: the declaration's own text already has no
		// `export` keyword, but kinds that need `declare` to remain valid
		// ambient syntax still need it prepended in the flattened output.
		if needsDeclare && !strings.HasPrefix(text, "declare ") {
			return "declare " + text
		}
		return text
	}
}

// declKindNeedsDeclareKeyword reports whether kind requires a `declare`
// prefix to stand alone as ambient syntax. Interface and type-alias
// declarations never take one.
func declKindNeedsDeclareKeyword(kind ast.DeclKind) bool {
	switch kind {
	case ast.DeclInterface, ast.DeclTypeAlias:
		return false
	default:
		return true
	}
}

// renameIdent replaces the first whole-identifier occurrence of from in
// text with to, used to rename an anonymous or aliased default export
// under the name the terminal export statement refers to it by.
func renameIdent(text, from, to string) string {
	searchFrom := 0
	for {
		rel := strings.Index(text[searchFrom:], from)
		if rel < 0 {
			return text
		}
		idx := searchFrom + rel
		end := idx + len(from)
		if (idx == 0 || !isIdentByte(text[idx-1])) && (end == len(text) || !isIdentByte(text[end])) {
			return text[:idx] + to + text[end:]
		}
		searchFrom = idx + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
