package strand

// Memo is a cached derived computation. It is lazy: the body does not run at
// creation, only on the first Get. When a dependency changes the memo is
// marked stale but not recomputed until something reads it again, so memos
// nobody observes cost nothing.
//
// A memo is both an observer (of the cells and memos its body reads) and a
// dependency (of the computations that read it). If a recomputation produces
// a value equal to the cached one, downstream observers are not dirtied; this
// is the cutoff that resolves the diamond problem.
type Memo[T any] struct {
	base depBase

	rt    *Runtime
	scope *Scope

	compute func() T

	value   T
	version uint64

	// state drives the check/dirty invalidation walk; everRan distinguishes
	// the lazy first computation from a genuine recompute.
	state   nodeState
	everRan bool

	// sources is the edge set recorded by the last execution, in read order.
	sources []dependency

	equal func(T, T) bool
	label string

	inRun    bool
	disposed bool
}

// MemoOption configures a Memo at creation time.
type MemoOption func(*memoConfig)

type memoConfig struct {
	label string
}

// WithMemoLabel attaches a diagnostic name to the memo.
func WithMemoLabel(name string) MemoOption {
	return func(c *memoConfig) {
		c.label = name
	}
}

// NewMemo creates a memo owned by the runtime's current scope. The
// computation does not run until the first Get.
func NewMemo[T any](rt *Runtime, compute func() T, opts ...MemoOption) *Memo[T] {
	var cfg memoConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memo[T]{
		base:    depBase{id: nextID()},
		rt:      rt,
		compute: compute,
		state:   stateDirty,
		label:   cfg.label,
	}
	m.scope = rt.creationScope()
	m.scope.registerNode(m)
	return m
}

// Get returns the memo's value, recomputing it first if a dependency changed,
// and subscribes the current computation to the memo.
func (m *Memo[T]) Get() T {
	if m.disposed {
		panic(ErrUseAfterDispose)
	}
	if m.inRun {
		// The memo's own body is reading itself, directly or through a chain.
		panic(ErrReactiveCycle)
	}
	// Resolve staleness before subscribing the reader, so a recompute
	// triggered by this read never dirties the reader itself.
	m.refresh()
	m.rt.track(m)
	m.rt.maybeFlush()
	return m.value
}

// Peek returns the memo's value without subscribing. Staleness is still
// resolved first.
func (m *Memo[T]) Peek() T {
	if m.disposed {
		panic(ErrUseAfterDispose)
	}
	m.refresh()
	m.rt.maybeFlush()
	return m.value
}

// WithEquals configures the equality function used by the downstream cutoff.
func (m *Memo[T]) WithEquals(fn func(T, T) bool) *Memo[T] {
	m.equal = fn
	return m
}

// ID returns the unique identifier for this memo.
func (m *Memo[T]) ID() uint64 {
	return m.base.id
}

// Label returns the diagnostic name, if any.
func (m *Memo[T]) Label() string {
	return m.label
}

// Version returns the number of times the memo produced a new value.
func (m *Memo[T]) Version() uint64 {
	return m.version
}

// Dependencies returns the IDs of the cells and memos read during the last
// execution, in read order. Read-only diagnostic hook.
func (m *Memo[T]) Dependencies() []uint64 {
	ids := make([]uint64, len(m.sources))
	for i, src := range m.sources {
		ids[i] = src.ID()
	}
	return ids
}

// Subscribers returns the IDs of the computations subscribed to this memo.
// Read-only diagnostic hook.
func (m *Memo[T]) Subscribers() []uint64 {
	return m.base.subscriberIDs()
}

// observer interface.

// markStale escalates the memo's invalidation state. On the clean-to-stale
// transition the memo's own subscribers are marked check: they may need to
// recompute, but whether they do is decided when this memo actually
// recomputes and compares values.
//
// A write that reaches a memo mid-execution means the memo's own body mutated
// one of its dependencies: a reactive cycle.
func (m *Memo[T]) markStale(s nodeState) {
	if m.inRun {
		panic(ErrReactiveCycle)
	}
	if m.disposed || s <= m.state {
		return
	}
	wasClean := m.state == stateClean
	m.state = s
	if wasClean {
		m.base.markSubscribers(stateCheck)
	}
}

func (m *Memo[T]) addSource(src dependency) {
	sid := src.ID()
	for _, existing := range m.sources {
		if existing.ID() == sid {
			return
		}
	}
	m.sources = append(m.sources, src)
}

func (m *Memo[T]) removeSource(src dependency) {
	sid := src.ID()
	for i, existing := range m.sources {
		if existing.ID() == sid {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return
		}
	}
}

// dependency interface.

func (m *Memo[T]) attach(obs observer) { m.base.attach(obs) }
func (m *Memo[T]) detach(obs observer) { m.base.detach(obs) }

// refresh resolves staleness before a read. A check memo first refreshes its
// sources in read order; if one of them recomputes to a different value it
// marks this memo dirty, at which point the walk can stop. Only a dirty memo
// (or one that never ran) executes its body.
//
// A disposed memo never refreshes: its body must not re-run, whatever a
// downstream walk claims about its staleness.
func (m *Memo[T]) refresh() {
	if m.disposed {
		return
	}
	if m.state == stateCheck {
		for _, src := range m.sources {
			src.refresh()
			if m.state == stateDirty {
				break
			}
		}
	}
	if m.state == stateDirty || !m.everRan {
		m.run()
	}
	m.state = stateClean
}

// run re-executes the body under tracking, rebuilding the edge set from the
// reads actually performed, and dirties subscribers only if the value
// changed.
func (m *Memo[T]) run() {
	// Drop the previous edge set; the body's reads rebuild it.
	for _, src := range m.sources {
		src.detach(m)
	}
	m.sources = m.sources[:0]

	m.inRun = true
	prev := m.rt.setActive(m)

	defer func() {
		m.rt.setActive(prev)
		m.inRun = false
	}()

	newValue := m.compute()
	m.rt.stats.memoRuns.Add(1)

	changed := !m.everRan || !m.equals(m.value, newValue)
	m.everRan = true
	if changed {
		m.value = newValue
		m.version++
		m.base.markSubscribers(stateDirty)
	}
}

func (m *Memo[T]) equals(a, b T) bool {
	if m.equal != nil {
		return m.equal(a, b)
	}
	return defaultEquals(a, b)
}

// dispose severs both edge directions, including the edges subscribers hold
// back to this memo. A live reader re-tracks on its next run; if its body
// still reads this memo it panics with ErrUseAfterDispose there.
func (m *Memo[T]) dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	for _, src := range m.sources {
		src.detach(m)
	}
	m.sources = nil
	for _, sub := range m.base.subs {
		if t, ok := sub.(trackedObserver); ok {
			t.removeSource(m)
		}
	}
	m.base.subs = nil
}
