package strand

import "time"

// Cell is a mutable reactive storage slot. Reading a Cell during a tracked
// context (memo computation or effect execution) subscribes the current
// computation to the cell; writing a new value dirties every subscriber and
// flushes pending effects before Set returns (unless inside a Batch).
type Cell[T any] struct {
	base depBase

	rt    *Runtime
	scope *Scope

	// value is the current cell value; version counts accepted writes.
	value   T
	version uint64

	// equal decides whether a write is observably different. Nil means
	// defaultEquals.
	equal func(T, T) bool

	// alwaysNotify disables the value-stability cutoff: every write dirties
	// subscribers even when the value compares equal.
	alwaysNotify bool

	// label is an optional diagnostic name.
	label string

	disposed bool
}

type cellConfig struct {
	label        string
	alwaysNotify bool
}

// CellOption configures a Cell at creation time.
type CellOption func(*cellConfig)

// WithLabel attaches a diagnostic name to the cell, visible in snapshots and
// write events.
func WithLabel(name string) CellOption {
	return func(c *cellConfig) {
		c.label = name
	}
}

// AlwaysNotify makes every write dirty subscribers, skipping the equality
// cutoff. Use for values without meaningful equality.
func AlwaysNotify() CellOption {
	return func(c *cellConfig) {
		c.alwaysNotify = true
	}
}

// NewCell creates a cell owned by the runtime's current scope.
// Panics with ErrNoActiveScope if the runtime has been disposed.
func NewCell[T any](rt *Runtime, initial T, opts ...CellOption) *Cell[T] {
	var cfg cellConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cell[T]{
		base:         depBase{id: nextID()},
		rt:           rt,
		value:        initial,
		label:        cfg.label,
		alwaysNotify: cfg.alwaysNotify,
	}
	c.scope = rt.creationScope()
	c.scope.registerCell(c)
	return c
}

// Get returns the current value and subscribes the current computation.
// Panics with ErrUseAfterDispose once the owning scope is disposed.
func (c *Cell[T]) Get() T {
	if c.disposed {
		panic(ErrUseAfterDispose)
	}
	c.rt.track(c)
	return c.value
}

// Peek returns the current value without creating a dependency. This is the
// snapshot hook for layers that hand values across the core's boundary.
func (c *Cell[T]) Peek() T {
	if c.disposed {
		panic(ErrUseAfterDispose)
	}
	return c.value
}

// Set stores a new value. If the value is observably different (per the
// configured equality), subscribers are marked stale and the scheduler
// flushes pending effects before Set returns, unless a batch or an outer
// flush is in progress.
func (c *Cell[T]) Set(value T) {
	if c.disposed {
		panic(ErrUseAfterDispose)
	}
	if !c.alwaysNotify && c.equals(c.value, value) {
		return
	}

	c.value = value
	c.version++
	c.rt.stats.writes.Add(1)
	if hook := c.rt.cfg.onWrite; hook != nil {
		hook(WriteEvent{
			CellID:  c.base.id,
			Label:   c.label,
			Version: c.version,
			Time:    time.Now(),
		})
	}

	c.base.markSubscribers(stateDirty)
	c.rt.maybeFlush()
}

// Update atomically reads and writes the cell through fn.
func (c *Cell[T]) Update(fn func(T) T) {
	if c.disposed {
		panic(ErrUseAfterDispose)
	}
	c.Set(fn(c.value))
}

// WithEquals configures a custom equality function used by the write cutoff.
func (c *Cell[T]) WithEquals(fn func(T, T) bool) *Cell[T] {
	c.equal = fn
	return c
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.base.id
}

// Label returns the diagnostic name, if any.
func (c *Cell[T]) Label() string {
	return c.label
}

// Version returns the number of accepted writes.
func (c *Cell[T]) Version() uint64 {
	return c.version
}

// Subscribers returns the IDs of the computations currently subscribed to
// this cell, in subscription order. Read-only diagnostic hook.
func (c *Cell[T]) Subscribers() []uint64 {
	return c.base.subscriberIDs()
}

func (c *Cell[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

// dependency interface.

func (c *Cell[T]) attach(obs observer) { c.base.attach(obs) }
func (c *Cell[T]) detach(obs observer) { c.base.detach(obs) }

// refresh is a no-op: a cell's value is always current.
func (c *Cell[T]) refresh() {}

// dispose severs all remaining subscriber edges, both directions. By the time
// the scope disposes its cells same-scope subscribers are gone already, but a
// reader in an outer scope may outlive the cell and must drop its edge too.
func (c *Cell[T]) dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	for _, sub := range c.base.subs {
		if t, ok := sub.(trackedObserver); ok {
			t.removeSource(c)
		}
	}
	c.base.subs = nil
}
