// Package strand provides a fine-grained reactive runtime: cells (signals),
// memos (cached derived computations), effects, and an ownership tree that
// disposes everything created within a scope.
//
// Dependencies are tracked automatically at runtime. Reading a cell during a
// memo computation or an effect body subscribes that computation to the cell;
// the edge set is rebuilt from scratch on every re-execution, so branches
// that stop reading a cell stop being retriggered by it.
//
// # Core Types
//
// Cell[T] is a reactive value container:
//
//	rt := strand.NewRuntime()
//	count := strand.NewCell(rt, 0)
//	value := count.Get()  // read (subscribes the current computation)
//	count.Set(5)          // write (dirties subscribers, flushes effects)
//	count.Update(func(n int) int { return n + 1 })
//
// Memo[T] is a lazy cached computation. It recomputes at most once per update
// pass, and only when something reads it:
//
//	doubled := strand.NewMemo(rt, func() int { return count.Get() * 2 })
//	value := doubled.Get()
//
// Effect runs side effects when its dependencies change. Re-runs are pushed
// through a deduplicated FIFO queue that drains before the outermost write
// returns:
//
//	strand.CreateEffect(rt, func() strand.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return func() { /* teardown before next run and on disposal */ }
//	})
//
// # Update Order
//
// Effect execution order is deterministic: the queue is FIFO in scheduling
// order, and a cell notifies subscribers in subscription order, so effects
// that are equally eligible run in creation order. A flush that exceeds the
// configured run budget panics with ErrDivergentUpdate instead of looping.
//
// # Concurrency
//
// A Runtime is confined to a single goroutine; scheduling is cooperative and
// synchronous. Runtime.Dispatch is the one cross-goroutine entry point: async
// work spawned by an effect applies its results by dispatching a closure back
// onto the runtime (see Resource for the packaged pattern).
package strand
