// Package exitcode maps internal/diag error kinds onto the small,
// stable process exit codes spec.md §6 calls for: 0 on success, a
// distinct non-zero code per fatal error kind otherwise.
package exitcode

import "github.com/h-a-n-a/dts-up/internal/diag"

const (
	OK       = 0
	Generic  = 1
	Parse    = 2
	Resolve  = 3
	Link     = 4
	Dup      = 5
	Invariant = 6
	IO       = 7
)

// For returns the exit code for err, or Generic if err is not a *diag.Error.
func For(err error) int {
	if err == nil {
		return OK
	}
	de, ok := err.(*diag.Error)
	if !ok {
		return Generic
	}
	switch de.Kind {
	case diag.ParseError:
		return Parse
	case diag.ResolveError:
		return Resolve
	case diag.LinkError:
		return Link
	case diag.DuplicateExportError:
		return Dup
	case diag.InvariantError:
		return Invariant
	case diag.IOError:
		return IO
	default:
		return Generic
	}
}
