package taskgraph

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds for graph construction failures (spec.md §4.4, §7).
// They are intentionally coarse: the scheduler only distinguishes FAIL from
// ERROR, not these finer kinds, but callers that want to branch on the
// specific construction failure can errors.Is against these.
var (
	ErrNoRoots            = errors.New("no root nodes")
	ErrExcessDependencies = errors.New("excess dependencies found")
	ErrCircularOrMissing  = errors.New("circular or missing dependency")
)

// GraphError wraps a graph-construction sentinel with a pkg/errors-annotated
// stack and an optional witness (e.g. the concrete cycle path), so that logs
// and tests can recover more than the bare Status.message spec.md requires.
type GraphError struct {
	Kind    error
	Witness string
	cause   error
}

func newGraphError(kind error, witness string) *GraphError {
	return &GraphError{Kind: kind, Witness: witness, cause: pkgerrors.WithStack(kind)}
}

func (e *GraphError) Error() string {
	if e.Witness == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Witness
}

func (e *GraphError) Unwrap() error { return e.Kind }

// Cause exposes the pkg/errors-annotated stack trace for diagnostics.
func (e *GraphError) Cause() error { return e.cause }

// statusFromGraphError converts a construction error into the exact Status
// shape spec.md §4.4 and §8 scenario 3/4 require: kind FAIL, message equal
// to the sentinel's literal text (the richer witness is dropped from the
// Status and is only available via errors.As on the returned error).
func statusFromGraphError(err error) Status {
	var ge *GraphError
	if errors.As(err, &ge) {
		return Fail(ge.Kind.Error())
	}
	return Fail(err.Error())
}
