package strand

// nodeState is the invalidation state of a computation node.
//
// A write marks a cell's direct subscribers dirty and everything further
// downstream check. A check node does not know yet whether it must recompute;
// it walks its sources on demand and only recomputes if one of them actually
// produced a new value. This is what keeps a diamond of memos from running
// twice and keeps effects from firing on writes that were cut off by a memo's
// equality check.
type nodeState uint8

const (
	stateClean nodeState = iota // cached output is valid
	stateCheck                  // a transitive dependency may have changed
	stateDirty                  // a direct dependency changed, must recompute
)

func (s nodeState) String() string {
	switch s {
	case stateClean:
		return "clean"
	case stateCheck:
		return "check"
	case stateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// observer is anything that can be marked stale when a dependency changes:
// memos and effects.
type observer interface {
	// ID returns the unique identifier, used for edge deduplication.
	ID() uint64

	// markStale pushes an invalidation state onto the observer. States only
	// ever escalate (clean < check < dirty) within a pass. Dirtying a memo
	// whose body is still executing is a reactive cycle; dirtying a running
	// effect re-schedules it onto the current flush pass.
	markStale(s nodeState)
}

// trackedObserver is an observer that records its dependency edges, so the
// edge set can be rebuilt on every execution.
type trackedObserver interface {
	observer
	addSource(src dependency)

	// removeSource drops an edge from the observer's side. Called when a
	// dependency is disposed while the observer outlives it, so no edge
	// dangles in either direction.
	removeSource(src dependency)
}

// dependency is anything an observer can read reactively: cells and memos.
type dependency interface {
	// ID returns the unique identifier, used for edge deduplication.
	ID() uint64

	// attach adds a subscription edge from the observer.
	attach(obs observer)

	// detach removes the observer's subscription edge.
	detach(obs observer)

	// refresh brings the dependency's value up to date. For cells this is a
	// no-op; a memo resolves its own staleness, possibly recomputing.
	refresh()
}

// depBase provides type-erased subscriber management. It is embedded in
// Cell[T] and Memo[T] to share subscription bookkeeping.
//
// The subscriber list preserves subscription order: propagation visits
// subscribers in the order they first read the dependency, which is what
// makes effect scheduling deterministic.
type depBase struct {
	id   uint64
	subs []observer
}

// attach adds an observer to the subscriber list, deduplicated by ID.
func (d *depBase) attach(obs observer) {
	oid := obs.ID()
	for _, existing := range d.subs {
		if existing.ID() == oid {
			return
		}
	}
	d.subs = append(d.subs, obs)
}

// detach removes an observer from the subscriber list, preserving order.
func (d *depBase) detach(obs observer) {
	oid := obs.ID()
	for i, existing := range d.subs {
		if existing.ID() == oid {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// markSubscribers pushes an invalidation state to every current subscriber,
// in subscription order.
func (d *depBase) markSubscribers(s nodeState) {
	// Copy before notifying: markStale may re-enter and subscribe/unsubscribe.
	subs := make([]observer, len(d.subs))
	copy(subs, d.subs)

	for _, sub := range subs {
		sub.markStale(s)
	}
}

// subscriberIDs returns the IDs of the current subscribers, in subscription
// order. Read-only diagnostic accessor.
func (d *depBase) subscriberIDs() []uint64 {
	ids := make([]uint64, len(d.subs))
	for i, sub := range d.subs {
		ids[i] = sub.ID()
	}
	return ids
}
