package strand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond through Dispatch until it holds or the deadline passes.
// Resources apply their results via Dispatch, so serializing the reads the
// same way keeps the test race-free.
func waitFor(t *testing.T, rt *Runtime, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ok := false
		rt.Dispatch(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestResourceFetchesAndSettles(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	id := NewCell(rt, 1)
	r := NewResource(rt, id.Get, func(ctx context.Context, key int) (string, error) {
		return fmt.Sprintf("user-%d", key), nil
	})

	waitFor(t, rt, func() bool { return !r.Loading() })

	rt.Dispatch(func() {
		if r.Value() != "user-1" {
			t.Errorf("expected user-1, got %q", r.Value())
		}
		if r.Err() != nil {
			t.Errorf("unexpected error: %v", r.Err())
		}
	})
}

func TestResourceRefetchesOnSourceChange(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	id := NewCell(rt, 1)
	r := NewResource(rt, id.Get, func(ctx context.Context, key int) (string, error) {
		return fmt.Sprintf("user-%d", key), nil
	})

	waitFor(t, rt, func() bool { return !r.Loading() && r.Value() == "user-1" })

	rt.Dispatch(func() { id.Set(2) })
	waitFor(t, rt, func() bool { return !r.Loading() && r.Value() == "user-2" })
}

func TestResourceErrorSurfaces(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	boom := errors.New("backend down")
	trigger := NewCell(rt, 0)
	r := NewResource(rt, trigger.Get, func(ctx context.Context, key int) (string, error) {
		return "", boom
	})

	waitFor(t, rt, func() bool { return !r.Loading() })

	rt.Dispatch(func() {
		if !errors.Is(r.Err(), boom) {
			t.Errorf("expected fetch error, got %v", r.Err())
		}
	})
}

func TestResourceLatestWins(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	// The first fetch blocks until released, after the second completes.
	release := make(chan struct{})
	var mu sync.Mutex
	started := 0

	id := NewCell(rt, 1)
	r := NewResource(rt, id.Get, func(ctx context.Context, key int) (string, error) {
		mu.Lock()
		n := started
		started++
		mu.Unlock()
		if n == 0 {
			<-release
		}
		return fmt.Sprintf("user-%d", key), nil
	})

	rt.Dispatch(func() { id.Set(2) })
	waitFor(t, rt, func() bool { return !r.Loading() && r.Value() == "user-2" })

	close(release)
	// Give the stale completion a chance to misbehave.
	time.Sleep(20 * time.Millisecond)

	rt.Dispatch(func() {
		if r.Value() != "user-2" {
			t.Errorf("stale fetch overwrote newer result: %q", r.Value())
		}
	})
}

func TestResourceRefetch(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	var mu sync.Mutex
	calls := 0
	trigger := NewCell(rt, 0)
	r := NewResource(rt, trigger.Get, func(ctx context.Context, key int) (int, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		return n, nil
	})

	waitFor(t, rt, func() bool { return !r.Loading() && r.Value() == 1 })

	rt.Dispatch(func() { r.Refetch() })
	waitFor(t, rt, func() bool { return !r.Loading() && r.Value() == 2 })
}

func TestResourceDisposeCancelsFetch(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	cancelled := make(chan struct{})
	s := rt.NewScope(nil)
	var r *Resource[string]
	rt.WithScope(s, func() {
		trigger := NewCell(rt, 0)
		r = NewResource(rt, trigger.Get, func(ctx context.Context, key int) (string, error) {
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		})
	})

	s.Dispose()

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("disposing the owning scope must cancel the in-flight fetch")
	}
	_ = r
}

func TestResourceCompletionAfterDisposeIsDropped(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	release := make(chan struct{})
	s := rt.NewScope(nil)
	var r *Resource[string]
	rt.WithScope(s, func() {
		trigger := NewCell(rt, 0)
		r = NewResource(rt, trigger.Get, func(ctx context.Context, key int) (string, error) {
			<-release
			return "late", nil
		})
	})

	rt.Dispatch(func() { s.Dispose() })
	writesBefore := rt.Stats().Writes

	// Let the fetch finish after its scope is gone. The completion must be
	// dropped without touching any cell.
	close(release)
	time.Sleep(20 * time.Millisecond)

	if got := rt.Stats().Writes; got != writesBefore {
		t.Errorf("stale completion wrote cells after dispose: writes %d -> %d", writesBefore, got)
	}
	_ = r
}
