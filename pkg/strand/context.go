package strand

// contextKey gives each Context a unique identity without relying on the
// value type.
type contextKey struct{ name string }

// Context carries a typed value down the scope tree: a value provided at a
// scope is visible to every computation created under that scope, without
// threading it through arguments. Context reads are not reactive; wrap the
// value in a Cell if consumers should re-run when it changes.
type Context[T any] struct {
	key          *contextKey
	defaultValue T
}

// NewContext creates a context with a default value, returned by Use when no
// enclosing scope provided one. The name is diagnostic only.
func NewContext[T any](name string, defaultValue T) Context[T] {
	return Context[T]{
		key:          &contextKey{name: name},
		defaultValue: defaultValue,
	}
}

// Provide sets the context's value on the runtime's current scope.
func (c Context[T]) Provide(rt *Runtime, value T) {
	rt.creationScope().SetValue(c.key, value)
}

// Use reads the context's value from the nearest providing scope, falling
// back to the default.
func (c Context[T]) Use(rt *Runtime) T {
	scope := rt.scope
	if scope == nil {
		return c.defaultValue
	}
	v, ok := scope.Value(c.key)
	if !ok {
		return c.defaultValue
	}
	t, ok := v.(T)
	if !ok {
		return c.defaultValue
	}
	return t
}
