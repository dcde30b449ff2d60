package devtools

import (
	"sync"

	"github.com/strand-ui/strand/pkg/strand"
)

// defaultRecorderCapacity bounds the write history kept in memory.
const defaultRecorderCapacity = 1024

// Recorder keeps a bounded history of cell writes. Feed it to a runtime via
// strand.WithWriteHook(rec.Hook); when the buffer is full the oldest entry is
// dropped.
//
// The hook runs on the runtime goroutine while Events is typically called from
// an HTTP handler, so the buffer is guarded by a mutex.
type Recorder struct {
	mu     sync.Mutex
	buf    []strand.WriteEvent
	head   int
	filled bool
}

// NewRecorder creates a recorder holding up to capacity events. A
// non-positive capacity uses the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	return &Recorder{buf: make([]strand.WriteEvent, capacity)}
}

// Hook records one write event. Pass this method to strand.WithWriteHook.
func (r *Recorder) Hook(ev strand.WriteEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.head] = ev
	r.head++
	if r.head == len(r.buf) {
		r.head = 0
		r.filled = true
	}
}

// Events returns the recorded history, oldest first.
func (r *Recorder) Events() []strand.WriteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]strand.WriteEvent, r.head)
		copy(out, r.buf[:r.head])
		return out
	}
	out := make([]strand.WriteEvent, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	out = append(out, r.buf[:r.head]...)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.buf)
	}
	return r.head
}

// Reset discards the recorded history.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.filled = false
}
