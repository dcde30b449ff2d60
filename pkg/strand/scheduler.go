package strand

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// The scheduler moves through three phases. Idle: nothing pending. Batching:
// writes inside Batch record dirtying but defer the flush until the outermost
// batch returns. Flushing: the pending-effect queue drains in FIFO order;
// writes performed by a running effect enqueue further work onto the same
// pass instead of nesting.

// Batch executes fn with flushing suspended. However many writes fn performs
// across however many cells, at most one flush pass runs after fn returns, so
// no effect observes an intermediate state. Nested batches flatten into the
// outermost batch's single flush.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		rt.maybeFlush()
	}()
	fn()
}

// Untracked executes fn with dependency tracking suspended: reads inside fn
// return current values without registering edges. For a single cell read,
// Cell.Peek is the cheaper equivalent.
func (rt *Runtime) Untracked(fn func()) {
	rt.pauseStack = append(rt.pauseStack, rt.active)
	rt.active = nil

	defer func() {
		last := len(rt.pauseStack) - 1
		rt.active = rt.pauseStack[last]
		rt.pauseStack = rt.pauseStack[:last]
	}()

	fn()
}

// maybeFlush starts a flush pass unless one is already draining, a batch is
// open, or a computation body is still executing. In the last case the flush
// happens when the outermost body finishes (CreateEffect, Memo.Get, Resume,
// and Dispatch all retry on exit), so an effect never observes a computation
// mid-run.
func (rt *Runtime) maybeFlush() {
	if rt.batchDepth > 0 || rt.flushing || rt.active != nil {
		return
	}
	if len(rt.queue) == 0 {
		return
	}
	rt.flush()
}

// flush drains the pending-effect queue. Each popped effect resolves its
// staleness (possibly skipping the run entirely if a memo cutoff absorbed the
// write) and re-executes its teardown-then-body sequence. Effects enqueued by
// re-entrant writes extend the same pass. A pass that executes more than the
// configured budget of effect bodies panics with ErrDivergentUpdate.
func (rt *Runtime) flush() {
	rt.flushing = true
	defer func() { rt.flushing = false }()

	runs := 0
	if rt.cfg.tracer != nil {
		_, span := rt.cfg.tracer.Start(context.Background(), "strand.flush")
		defer func() {
			span.SetAttributes(attribute.Int("strand.effect_runs", runs))
			span.End()
		}()
	}

	for len(rt.queue) > 0 {
		e := rt.queue[0]
		rt.queue = rt.queue[1:]
		e.pending = false

		if e.resolveAndRun() {
			runs++
			if runs > rt.cfg.maxFlushRuns {
				rt.cfg.logger.Error("strand: flush did not converge",
					"runs", runs, "budget", rt.cfg.maxFlushRuns)
				panic(ErrDivergentUpdate)
			}
		}
	}

	rt.stats.flushes.Add(1)
}
