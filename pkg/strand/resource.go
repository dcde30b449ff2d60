package strand

import (
	"context"
	"sync/atomic"
)

// Resource is an asynchronous derived value. The source function is tracked
// like a memo body: whenever a dependency of source changes, the fetch
// restarts with the new key. The fetch itself runs on its own goroutine, and
// its result re-enters the runtime through Dispatch: the synchronous portion
// of the effect runs during the flush that triggered it, and the continuation
// is applied as a fresh pass when the fetch completes.
//
// Results are latest-wins: a completion that was superseded by a newer fetch,
// or whose resource was disposed, is discarded without writing anything.
type Resource[T any] struct {
	rt *Runtime

	loading *Cell[bool]
	value   *Cell[T]
	err     *Cell[error]

	// reload re-triggers the fetch without a source change.
	reload *Cell[uint64]

	seq atomic.Uint64
}

// NewResource creates a resource owned by the runtime's current scope.
// source computes the fetch key under tracking; fetch loads the value for a
// key and may block. The first fetch starts immediately.
func NewResource[K comparable, T any](
	rt *Runtime,
	source func() K,
	fetch func(ctx context.Context, key K) (T, error),
) *Resource[T] {
	var zero T
	r := &Resource[T]{
		rt:      rt,
		loading: NewCell(rt, true),
		value:   NewCell(rt, zero),
		err:     NewCell[error](rt, nil),
		reload:  NewCell(rt, uint64(0)),
	}

	CreateEffect(rt, func() Cleanup {
		key := source()
		r.reload.Get()

		seq := r.seq.Add(1)
		ctx, cancel := context.WithCancel(context.Background())
		r.loading.Set(true)

		go func() {
			v, err := fetch(ctx, key)
			rt.Dispatch(func() {
				// The effect's teardown cancels ctx, both before a newer run
				// and on disposal, so a cancelled context means this
				// completion must not write anything. The sequence guard
				// additionally drops completions a newer fetch overtook.
				if ctx.Err() != nil || r.seq.Load() != seq {
					return
				}
				rt.Batch(func() {
					if err != nil {
						r.err.Set(err)
					} else {
						r.value.Set(v)
						r.err.Set(nil)
					}
					r.loading.Set(false)
				})
			})
		}()

		// Teardown: cancel the in-flight fetch before the next run and on
		// disposal.
		return func() { cancel() }
	})

	return r
}

// Value returns the most recently fetched value, subscribing the current
// computation. The zero value until the first fetch completes.
func (r *Resource[T]) Value() T {
	return r.value.Get()
}

// Err returns the error from the most recent completed fetch, if any.
func (r *Resource[T]) Err() error {
	return r.err.Get()
}

// Loading reports whether a fetch is in flight.
func (r *Resource[T]) Loading() bool {
	return r.loading.Get()
}

// Refetch restarts the fetch with the current key.
func (r *Resource[T]) Refetch() {
	r.reload.Update(func(n uint64) uint64 { return n + 1 })
}
