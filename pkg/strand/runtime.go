package strand

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// defaultMaxFlushRuns bounds how many effect executions a single flush pass
// may perform before the scheduler declares the update divergent.
const defaultMaxFlushRuns = 10_000

// WriteEvent describes one accepted cell write, delivered to the runtime's
// write hook. Consumed by inspection tooling (see pkg/devtools).
type WriteEvent struct {
	CellID  uint64
	Label   string
	Version uint64
	Time    time.Time
}

// Stats are monotonic counters maintained by the runtime. They are updated
// atomically so observers on other goroutines may read them without
// dispatching onto the runtime.
type Stats struct {
	Writes         uint64
	Flushes        uint64
	EffectRuns     uint64
	MemoRecomputes uint64
	Dispatches     uint64
}

type runtimeConfig struct {
	maxFlushRuns int
	logger       *slog.Logger
	tracer       trace.Tracer
	onWrite      func(WriteEvent)
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

// WithMaxFlushRuns sets the effect-run budget for a single flush pass.
// When a pass exceeds the budget the scheduler panics with ErrDivergentUpdate.
func WithMaxFlushRuns(n int) RuntimeOption {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.maxFlushRuns = n
		}
	}
}

// WithLogger sets the structured logger used for runtime debug logging.
// Defaults to a logger that discards everything below the default level.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = l
	}
}

// WithTracer enables OpenTelemetry tracing of flush passes. Each pass becomes
// one span carrying the number of effect runs it performed.
func WithTracer(t trace.Tracer) RuntimeOption {
	return func(c *runtimeConfig) {
		c.tracer = t
	}
}

// WithWriteHook registers a callback invoked for every accepted cell write.
// The hook runs synchronously on the runtime goroutine and must not write
// cells itself.
func WithWriteHook(fn func(WriteEvent)) RuntimeOption {
	return func(c *runtimeConfig) {
		c.onWrite = fn
	}
}

// Runtime owns a reactive graph: the tracking context that records dependency
// edges, the scheduler that orders effect re-runs, and the root of the
// ownership tree.
//
// A Runtime is confined to one goroutine. All cell writes, memo reads, and
// scope operations must happen on that goroutine; external goroutines enter
// through Dispatch.
type Runtime struct {
	cfg runtimeConfig

	// root is the implicit scope that owns everything not created under an
	// explicit child scope.
	root *Scope

	// scope is the scope that newly created primitives attach to.
	scope *Scope

	// active is the computation currently tracking reads, or nil.
	active trackedObserver

	// pauseStack saves suspended trackers for Untracked sections.
	pauseStack []trackedObserver

	// Scheduler state.
	batchDepth int
	flushing   bool
	queue      []*Effect

	// dispatchMu serializes Dispatch callers against each other.
	dispatchMu sync.Mutex

	disposed atomic.Bool

	stats struct {
		writes     atomic.Uint64
		flushes    atomic.Uint64
		effectRuns atomic.Uint64
		memoRuns   atomic.Uint64
		dispatches atomic.Uint64
	}
}

// NewRuntime creates a runtime with a fresh root scope.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	cfg := runtimeConfig{
		maxFlushRuns: defaultMaxFlushRuns,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	rt := &Runtime{cfg: cfg}
	rt.root = &Scope{
		id: nextID(),
		rt: rt,
	}
	rt.scope = rt.root
	return rt
}

// Root returns the runtime's root scope.
func (rt *Runtime) Root() *Scope {
	return rt.root
}

// Dispose tears down the entire graph: the root scope and every scope, cell,
// memo, and effect beneath it. After Dispose, creating any primitive on this
// runtime panics with ErrNoActiveScope.
//
// Dispose holds the dispatch lock for the whole teardown, so an in-flight
// Dispatch either completes before the graph goes away or observes the
// disposed flag and drops its callback. Do not call Dispose from inside a
// Dispatch callback.
func (rt *Runtime) Dispose() {
	rt.dispatchMu.Lock()
	defer rt.dispatchMu.Unlock()

	if rt.disposed.Swap(true) {
		return
	}
	rt.cfg.logger.Debug("strand: runtime disposing")
	rt.root.Dispose()
	rt.scope = nil
	rt.queue = nil
}

// IsDisposed reports whether the runtime has been disposed.
func (rt *Runtime) IsDisposed() bool {
	return rt.disposed.Load()
}

// Dispatch serializes fn onto the runtime and flushes any effects it
// scheduled. It is the correct way for asynchronous work to apply cell writes:
//
//	go func() {
//	    result, err := fetch(ctx)
//	    rt.Dispatch(func() {
//	        if err != nil { errCell.Set(err) } else { data.Set(result) }
//	    })
//	}()
//
// Dispatch on a disposed runtime is a no-op.
func (rt *Runtime) Dispatch(fn func()) {
	rt.dispatchMu.Lock()
	defer rt.dispatchMu.Unlock()

	if rt.disposed.Load() {
		rt.cfg.logger.Debug("strand: dispatch dropped, runtime disposed")
		return
	}
	rt.stats.dispatches.Add(1)
	fn()
	rt.maybeFlush()
}

// Stats returns a copy of the runtime's monotonic counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Writes:         rt.stats.writes.Load(),
		Flushes:        rt.stats.flushes.Load(),
		EffectRuns:     rt.stats.effectRuns.Load(),
		MemoRecomputes: rt.stats.memoRuns.Load(),
		Dispatches:     rt.stats.dispatches.Load(),
	}
}

// creationScope returns the scope new primitives attach to, panicking with
// ErrNoActiveScope once the runtime (or the current scope) is gone.
func (rt *Runtime) creationScope() *Scope {
	if rt.disposed.Load() || rt.scope == nil || rt.scope.disposed {
		panic(ErrNoActiveScope)
	}
	return rt.scope
}

// setActive installs obs as the current tracker and returns the previous one.
func (rt *Runtime) setActive(obs trackedObserver) trackedObserver {
	old := rt.active
	rt.active = obs
	return old
}

// track registers an edge between dep and the currently tracking computation,
// if any. Called from every reactive read.
func (rt *Runtime) track(dep dependency) {
	if rt.active == nil {
		return
	}
	rt.active.addSource(dep)
	dep.attach(rt.active)
}
