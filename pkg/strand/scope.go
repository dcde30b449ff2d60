package strand

// ownedCell is the scope-facing view of a Cell of any value type.
type ownedCell interface {
	ID() uint64
	Label() string
	Version() uint64
	Subscribers() []uint64
	dispose()
}

// ownedNode is the scope-facing view of a computation node (memo or effect).
type ownedNode interface {
	ID() uint64
	Label() string
	Dependencies() []uint64
	dispose()
}

// Scope is an ownership node in the disposal tree. Every cell, memo, effect,
// and child scope created while a scope is current belongs to it; disposing
// the scope tears the whole subtree down and severs every subscription edge
// in both directions.
type Scope struct {
	id uint64
	rt *Runtime

	parent   *Scope
	children []*Scope

	cells []ownedCell
	nodes []ownedNode

	// cleanups are manual callbacks registered via OnCleanup, run LIFO.
	cleanups []func()

	// values stores context values provided at this scope.
	values map[any]any

	disposed bool
}

// NewScope creates a child scope. A nil parent attaches to the runtime's
// current scope.
func (rt *Runtime) NewScope(parent *Scope) *Scope {
	if parent == nil {
		parent = rt.creationScope()
	}
	if parent.disposed {
		panic(ErrUseAfterDispose)
	}

	s := &Scope{
		id:     nextID(),
		rt:     rt,
		parent: parent,
	}
	parent.children = append(parent.children, s)
	return s
}

// WithScope runs fn with s as the creation scope: primitives created inside
// fn belong to s.
func (rt *Runtime) WithScope(s *Scope, fn func()) {
	if s.disposed {
		panic(ErrUseAfterDispose)
	}
	old := rt.scope
	rt.scope = s
	defer func() { rt.scope = old }()
	fn()
}

// OnCleanup registers fn on the runtime's current scope. Cleanups run in
// reverse registration order during disposal.
func OnCleanup(rt *Runtime, fn func()) {
	rt.creationScope().OnCleanup(fn)
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether this scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed
}

// OnCleanup registers a cleanup callback on this scope. Registering on a
// disposed scope runs the callback immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// SetValue provides a context value at this scope, visible to reads from this
// scope and its descendants.
func (s *Scope) SetValue(key, value any) {
	if s.disposed {
		panic(ErrUseAfterDispose)
	}
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Value looks a context value up through the scope chain. The second return
// reports whether any scope provided it.
func (s *Scope) Value(key any) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.values != nil {
			if v, ok := cur.values[key]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Dispose tears down this scope and everything beneath it: child scopes
// depth-first in reverse creation order, then owned computations in reverse
// creation order (each runs its teardown and severs its edges), then this
// scope's cleanup callbacks LIFO, then owned cells (defensively severing any
// subscriber edges still pointing into them).
//
// After Dispose returns, any operation on a primitive this scope owned panics
// with ErrUseAfterDispose.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	nodes := s.nodes
	s.nodes = nil
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].dispose()
	}

	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	cells := s.cells
	s.cells = nil
	for _, c := range cells {
		c.dispose()
	}

	s.values = nil
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func (s *Scope) registerCell(c ownedCell) {
	s.cells = append(s.cells, c)
}

func (s *Scope) registerNode(n ownedNode) {
	s.nodes = append(s.nodes, n)
}
