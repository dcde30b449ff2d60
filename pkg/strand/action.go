package strand

import (
	"context"
	"sync/atomic"
)

// Action is the push counterpart of Resource: an asynchronous mutation that
// runs only when dispatched, never from dependency tracking. Each dispatch
// records the input, raises the pending flag, runs the mutation on its own
// goroutine, and applies the outcome through Runtime.Dispatch.
//
// Submissions are latest-wins: dispatching again before the previous mutation
// settles supersedes it, and the stale completion is discarded without
// writing anything. Completions arriving after the owning scope is disposed
// are discarded the same way.
type Action[I, T any] struct {
	rt *Runtime

	pending *Cell[bool]
	input   *Cell[I]
	value   *Cell[T]
	err     *Cell[error]

	fn func(ctx context.Context, input I) (T, error)

	// ctx is cancelled when the owning scope is disposed.
	ctx context.Context

	// seq counts submissions; a completion only applies while it is newest.
	seq atomic.Uint64
}

// NewAction creates an action owned by the runtime's current scope. fn runs
// once per Dispatch call and may block; its context is cancelled when the
// owning scope is disposed.
func NewAction[I, T any](rt *Runtime, fn func(ctx context.Context, input I) (T, error)) *Action[I, T] {
	var zeroI I
	var zeroT T
	a := &Action[I, T]{
		rt:      rt,
		pending: NewCell(rt, false),
		input:   NewCell(rt, zeroI),
		value:   NewCell(rt, zeroT),
		err:     NewCell[error](rt, nil),
		fn:      fn,
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.ctx = ctx
	OnCleanup(rt, cancel)
	return a
}

// Dispatch submits the mutation with the given input. The pending flag and
// input cell update before Dispatch returns; value or error update when the
// mutation settles, unless a newer dispatch superseded it. Call on the
// runtime goroutine (or through Runtime.Dispatch).
func (a *Action[I, T]) Dispatch(input I) {
	seq := a.seq.Add(1)
	a.rt.Batch(func() {
		a.pending.Set(true)
		a.input.Set(input)
		a.err.Set(nil)
	})

	go func() {
		v, err := a.fn(a.ctx, input)
		a.rt.Dispatch(func() {
			if a.ctx.Err() != nil || a.seq.Load() != seq {
				return
			}
			a.rt.Batch(func() {
				if err != nil {
					a.err.Set(err)
				} else {
					a.value.Set(v)
				}
				a.pending.Set(false)
			})
		})
	}()
}

// Pending reports whether a submission is in flight, subscribing the current
// computation.
func (a *Action[I, T]) Pending() bool {
	return a.pending.Get()
}

// Input returns the most recently dispatched input. The zero value before the
// first dispatch.
func (a *Action[I, T]) Input() I {
	return a.input.Get()
}

// Value returns the result of the last successful submission. The zero value
// until one succeeds.
func (a *Action[I, T]) Value() T {
	return a.value.Get()
}

// Err returns the error from the last settled submission, if any.
func (a *Action[I, T]) Err() error {
	return a.err.Get()
}

// Version returns the number of submissions dispatched so far.
func (a *Action[I, T]) Version() uint64 {
	return a.seq.Load()
}

// Clear resets the value and error cells to their zero values.
func (a *Action[I, T]) Clear() {
	var zeroT T
	a.rt.Batch(func() {
		a.value.Set(zeroT)
		a.err.Set(nil)
	})
}
