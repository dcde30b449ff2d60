package strand

import "time"

// PrimitiveKind tags a snapshot entry.
type PrimitiveKind string

const (
	KindCell   PrimitiveKind = "cell"
	KindMemo   PrimitiveKind = "memo"
	KindEffect PrimitiveKind = "effect"
)

// NodeInfo describes one reactive primitive in a snapshot: its identity, the
// edges it currently holds in both directions, and its write/recompute
// version. Dependency IDs are in read order, subscriber IDs in subscription
// order.
type NodeInfo struct {
	ID           uint64        `json:"id"`
	Kind         PrimitiveKind `json:"kind"`
	Label        string        `json:"label,omitempty"`
	ScopeID      uint64        `json:"scope_id"`
	Version      uint64        `json:"version,omitempty"`
	Dependencies []uint64      `json:"dependencies,omitempty"`
	Subscribers  []uint64      `json:"subscribers,omitempty"`
}

// ScopeInfo describes one ownership node in a snapshot.
type ScopeInfo struct {
	ID       uint64 `json:"id"`
	ParentID uint64 `json:"parent_id,omitempty"`
}

// GraphSnapshot is a read-only view of the whole reactive graph, taken for
// inspection tooling. Taking a snapshot never mutates graph state: no edges
// are created, no memos recompute, no effects run.
type GraphSnapshot struct {
	TakenAt time.Time   `json:"taken_at"`
	Scopes  []ScopeInfo `json:"scopes"`
	Nodes   []NodeInfo  `json:"nodes"`
	Stats   Stats       `json:"stats"`
}

// memoLike picks memos out of the owned-node list: unlike effects they are
// also dependencies, with subscribers and a value version.
type memoLike interface {
	Subscribers() []uint64
	Version() uint64
}

// Snapshot walks the ownership tree and returns the current graph. Must run
// on the runtime goroutine (or inside Dispatch).
func (rt *Runtime) Snapshot() GraphSnapshot {
	snap := GraphSnapshot{
		TakenAt: time.Now(),
		Stats:   rt.Stats(),
	}
	if rt.root != nil {
		rt.root.collect(&snap)
	}
	return snap
}

// collect appends this scope and its primitives to the snapshot, then
// recurses into children.
func (s *Scope) collect(snap *GraphSnapshot) {
	if s.disposed {
		return
	}

	info := ScopeInfo{ID: s.id}
	if s.parent != nil {
		info.ParentID = s.parent.id
	}
	snap.Scopes = append(snap.Scopes, info)

	for _, c := range s.cells {
		snap.Nodes = append(snap.Nodes, NodeInfo{
			ID:          c.ID(),
			Kind:        KindCell,
			Label:       c.Label(),
			ScopeID:     s.id,
			Version:     c.Version(),
			Subscribers: c.Subscribers(),
		})
	}

	for _, n := range s.nodes {
		ni := NodeInfo{
			ID:           n.ID(),
			Kind:         KindEffect,
			Label:        n.Label(),
			ScopeID:      s.id,
			Dependencies: n.Dependencies(),
		}
		if m, ok := n.(memoLike); ok {
			ni.Kind = KindMemo
			ni.Version = m.Version()
			ni.Subscribers = m.Subscribers()
		}
		snap.Nodes = append(snap.Nodes, ni)
	}

	for _, child := range s.children {
		child.collect(snap)
	}
}
