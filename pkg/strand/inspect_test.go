package strand

import "testing"

func TestSnapshotCoversGraph(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	count := NewCell(rt, 1, WithLabel("count"))
	doubled := NewMemo(rt, func() int { return count.Get() * 2 }, WithMemoLabel("doubled"))
	CreateEffect(rt, func() Cleanup {
		_ = doubled.Get()
		return nil
	}, WithEffectLabel("log"))

	snap := rt.Snapshot()

	if len(snap.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(snap.Nodes))
	}

	byID := make(map[uint64]NodeInfo, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	cellInfo, ok := byID[count.ID()]
	if !ok || cellInfo.Kind != KindCell || cellInfo.Label != "count" {
		t.Errorf("unexpected cell node: %+v", cellInfo)
	}
	if len(cellInfo.Subscribers) != 1 || cellInfo.Subscribers[0] != doubled.ID() {
		t.Errorf("cell should have the memo as its only subscriber, got %v", cellInfo.Subscribers)
	}

	memoInfo := byID[doubled.ID()]
	if memoInfo.Kind != KindMemo {
		t.Errorf("expected memo kind, got %v", memoInfo.Kind)
	}
	if len(memoInfo.Dependencies) != 1 || memoInfo.Dependencies[0] != count.ID() {
		t.Errorf("memo should depend on the cell, got %v", memoInfo.Dependencies)
	}
	if len(memoInfo.Subscribers) != 1 {
		t.Errorf("memo should have the effect subscribed, got %v", memoInfo.Subscribers)
	}
}

func TestSnapshotScopeTree(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	child := rt.NewScope(nil)
	var c *Cell[int]
	rt.WithScope(child, func() {
		c = NewCell(rt, 0)
	})

	snap := rt.Snapshot()

	if len(snap.Scopes) != 2 {
		t.Fatalf("expected root and child scope, got %d", len(snap.Scopes))
	}

	var childInfo *ScopeInfo
	for i := range snap.Scopes {
		if snap.Scopes[i].ID == child.ID() {
			childInfo = &snap.Scopes[i]
		}
	}
	if childInfo == nil {
		t.Fatal("child scope missing from snapshot")
	}
	if childInfo.ParentID != rt.Root().ID() {
		t.Errorf("child scope should point at root, got parent %d", childInfo.ParentID)
	}

	for _, n := range snap.Nodes {
		if n.ID == c.ID() && n.ScopeID != child.ID() {
			t.Errorf("cell should belong to the child scope, got %d", n.ScopeID)
		}
	}
}

func TestSnapshotDropsDisposedNodes(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	s := rt.NewScope(nil)
	rt.WithScope(s, func() {
		NewCell(rt, 0)
		CreateEffect(rt, func() Cleanup { return nil })
	})
	s.Dispose()

	snap := rt.Snapshot()
	if len(snap.Nodes) != 0 {
		t.Errorf("disposed nodes must not appear in snapshots, got %d", len(snap.Nodes))
	}
	if len(snap.Scopes) != 1 {
		t.Errorf("disposed scopes must not appear in snapshots, got %d", len(snap.Scopes))
	}
}

func TestSnapshotIncludesStats(t *testing.T) {
	rt := NewRuntime()
	defer rt.Dispose()

	c := NewCell(rt, 0)
	c.Set(1)

	snap := rt.Snapshot()
	if snap.Stats.Writes != 1 {
		t.Errorf("expected 1 write in snapshot stats, got %d", snap.Stats.Writes)
	}
	if snap.TakenAt.IsZero() {
		t.Error("snapshot timestamp unset")
	}
}
