package strand

import "errors"

// The four error conditions below are programmer errors: the runtime panics
// with the sentinel value at the offending call site rather than returning it.
// There is no recovery path inside the core; callers that need a boundary
// (test harnesses, devtools) may recover and match with errors.Is.

// ErrNoActiveScope is raised when a reactive primitive is created after the
// runtime's root scope has been disposed, or under a scope that is gone.
var ErrNoActiveScope = errors.New("strand: no active scope")

// ErrReactiveCycle is raised when a computation's execution path reads or
// writes a cell that depends, directly or transitively, on the computation's
// own still-running execution.
var ErrReactiveCycle = errors.New("strand: reactive cycle")

// ErrDivergentUpdate is raised when a flush pass does not converge within the
// configured run budget (WithMaxFlushRuns). This guards against effects that
// keep dirtying their own transitive dependencies across passes.
var ErrDivergentUpdate = errors.New("strand: divergent update")

// ErrUseAfterDispose is raised on any read, write, or re-run of a cell, memo,
// effect, or scope that has already been disposed.
var ErrUseAfterDispose = errors.New("strand: use after dispose")

// Errors thrown by user-supplied bodies (memo computations, effect bodies)
// are not caught by the runtime; they propagate to whoever triggered the run.
