package strand

// Cleanup is a teardown function returned by an effect body. It runs before
// the effect's next execution and when the effect is disposed.
type Cleanup func()

// Effect is a side-effecting reactive task. The body runs once at creation,
// under tracking; afterwards, writes to any dependency push the effect onto
// the scheduler's queue instead of executing it inline. The queue is drained
// before the outermost write returns.
type Effect struct {
	id uint64

	rt    *Runtime
	scope *Scope

	fn      func() Cleanup
	cleanup Cleanup

	// sources is the edge set recorded by the last execution, in read order.
	sources []dependency

	state   nodeState
	pending bool
	inRun   bool

	label    string
	disposed bool
}

// EffectOption configures an Effect at creation time.
type EffectOption func(*effectConfig)

type effectConfig struct {
	label string
}

// WithEffectLabel attaches a diagnostic name to the effect.
func WithEffectLabel(name string) EffectOption {
	return func(c *effectConfig) {
		c.label = name
	}
}

// CreateEffect creates an effect owned by the runtime's current scope and
// executes the body immediately once, under tracking. If the body returns a
// Cleanup it runs before every re-execution and on disposal.
func CreateEffect(rt *Runtime, fn func() Cleanup, opts ...EffectOption) *Effect {
	var cfg effectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Effect{
		id:    nextID(),
		rt:    rt,
		fn:    fn,
		label: cfg.label,
	}
	e.scope = rt.creationScope()
	e.scope.registerNode(e)

	e.run()
	rt.maybeFlush()
	return e
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Label returns the diagnostic name, if any.
func (e *Effect) Label() string {
	return e.label
}

// Alive reports whether the effect is still live. Asynchronous continuations
// should check this (or just call Resume, which checks it) before applying
// results.
func (e *Effect) Alive() bool {
	return !e.disposed
}

// Dependencies returns the IDs of the cells and memos read during the last
// execution, in read order. Read-only diagnostic hook.
func (e *Effect) Dependencies() []uint64 {
	ids := make([]uint64, len(e.sources))
	for i, src := range e.sources {
		ids[i] = src.ID()
	}
	return ids
}

// Resume runs an asynchronous continuation of this effect: fn executes under
// tracking as this effect, replacing the edge set with the reads the
// continuation performs, and any writes it makes flush before Resume returns.
// A continuation of a disposed effect is a no-op.
//
// Call Resume from inside Runtime.Dispatch when completing work started on
// another goroutine:
//
//	go func() {
//	    data, err := load(ctx)
//	    rt.Dispatch(func() { e.Resume(func() { apply(data, err) }) })
//	}()
func (e *Effect) Resume(fn func()) {
	if e.disposed {
		return
	}
	e.resumeRun(fn)
	e.rt.maybeFlush()
}

// resumeRun executes fn as this effect's body for one run. The real body is
// restored in a defer so a panicking continuation cannot leave the effect
// re-running the one-shot wrapper.
func (e *Effect) resumeRun(fn func()) {
	body := e.fn
	e.fn = func() Cleanup {
		fn()
		return nil
	}
	defer func() { e.fn = body }()
	e.run()
}

// observer interface.

// markStale escalates the effect's staleness and schedules it on the
// clean-to-stale transition. An effect dirtied by its own body (a re-entrant
// write) is simply scheduled again onto the current pass; the flush budget is
// what bounds non-convergence.
func (e *Effect) markStale(s nodeState) {
	if e.disposed || s <= e.state {
		return
	}
	wasClean := e.state == stateClean
	e.state = s
	if wasClean {
		e.schedule()
	}
}

func (e *Effect) addSource(src dependency) {
	sid := src.ID()
	for _, existing := range e.sources {
		if existing.ID() == sid {
			return
		}
	}
	e.sources = append(e.sources, src)
}

func (e *Effect) removeSource(src dependency) {
	sid := src.ID()
	for i, existing := range e.sources {
		if existing.ID() == sid {
			e.sources = append(e.sources[:i], e.sources[i+1:]...)
			return
		}
	}
}

// schedule enqueues the effect, deduplicated by the pending flag.
func (e *Effect) schedule() {
	if e.pending {
		return
	}
	e.pending = true
	e.rt.queue = append(e.rt.queue, e)
}

// resolveAndRun decides whether a queued effect actually needs to re-execute.
// A check effect first refreshes its sources; if none of them recomputed to a
// new value the effect stays clean and is skipped; this is how a memo's
// equality cutoff stops effect runs. Returns whether the body ran.
func (e *Effect) resolveAndRun() bool {
	if e.disposed {
		return false
	}
	if e.state == stateCheck {
		for _, src := range e.sources {
			src.refresh()
			if e.state == stateDirty {
				break
			}
		}
	}
	if e.state != stateDirty {
		e.state = stateClean
		return false
	}
	e.run()
	return true
}

// run executes the body: previous teardown first, then the body under
// tracking with a rebuilt edge set.
func (e *Effect) run() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	for _, src := range e.sources {
		src.detach(e)
	}
	e.sources = e.sources[:0]

	// Writes performed by the body see a clean state and re-schedule the
	// effect onto the same flush pass.
	e.state = stateClean

	e.inRun = true
	prev := e.rt.setActive(e)

	defer func() {
		e.rt.setActive(prev)
		e.inRun = false
	}()

	e.cleanup = e.fn()
	e.rt.stats.effectRuns.Add(1)
}

// dispose tears the effect down: teardown callback, then both edge
// directions. Pending queue entries are skipped by the flush loop.
func (e *Effect) dispose() {
	if e.disposed {
		return
	}
	e.disposed = true

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	for _, src := range e.sources {
		src.detach(e)
	}
	e.sources = nil
}
