package strand

import "testing"

func TestContextDefaultValue(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	theme := NewContext("theme", "light")
	if got := theme.Use(rt); got != "light" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestContextProvideAndUse(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	theme := NewContext("theme", "light")
	theme.Provide(rt, "dark")

	if got := theme.Use(rt); got != "dark" {
		t.Errorf("expected provided value, got %q", got)
	}
}

func TestContextNearestProviderWins(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	theme := NewContext("theme", "light")
	theme.Provide(rt, "root")

	inner := rt.NewScope(nil)
	rt.WithScope(inner, func() {
		theme.Provide(rt, "inner")
		if got := theme.Use(rt); got != "inner" {
			t.Errorf("expected nearest provider, got %q", got)
		}
	})

	// Back outside the inner scope, the root value applies.
	if got := theme.Use(rt); got != "root" {
		t.Errorf("expected root value outside inner scope, got %q", got)
	}
}

func TestContextDistinctIdentities(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	a := NewContext("shared-name", 1)
	b := NewContext("shared-name", 2)
	a.Provide(rt, 10)

	if got := b.Use(rt); got != 2 {
		t.Errorf("contexts with the same name must not collide, got %d", got)
	}
}

func TestContextReadsAreNotReactive(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	theme := NewContext("theme", "light")
	theme.Provide(rt, "dark")

	runs := 0
	CreateEffect(rt, func() Cleanup {
		_ = theme.Use(rt)
		runs++
		return nil
	})

	theme.Provide(rt, "solarized")
	if runs != 1 {
		t.Errorf("re-providing a context must not re-run readers, got %d runs", runs)
	}
}
