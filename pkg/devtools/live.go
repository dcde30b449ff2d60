package devtools

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorilla/websocket"

	"github.com/strand-ui/strand/pkg/strand"
)

// liveCommand is a control message from a /live client. Watch narrows the
// stream to the listed node IDs; an empty watch list restores the full graph.
type liveCommand struct {
	Watch   []uint64 `json:"watch,omitempty"`
	Unwatch []uint64 `json:"unwatch,omitempty"`
}

// liveClient is one connected websocket consumer.
type liveClient struct {
	conn *websocket.Conn

	// watched holds the node IDs this client filtered to. Empty means all.
	// Written by the read loop, read by the push loop.
	mu      sync.Mutex
	watched mapset.Set[uint64]
}

func (c *liveClient) apply(cmd liveCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range cmd.Watch {
		c.watched.Add(id)
	}
	for _, id := range cmd.Unwatch {
		c.watched.Remove(id)
	}
}

// filter returns the snapshot restricted to the client's watched nodes.
func (c *liveClient) filter(snap strand.GraphSnapshot) strand.GraphSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watched.Cardinality() == 0 {
		return snap
	}
	nodes := make([]strand.NodeInfo, 0, c.watched.Cardinality())
	for _, n := range snap.Nodes {
		if c.watched.Contains(n.ID) {
			nodes = append(nodes, n)
		}
	}
	snap.Nodes = nodes
	return snap
}

// handleLive upgrades the connection and streams graph snapshots. Snapshots
// are fingerprinted so an unchanged graph is not re-sent; the snapshot
// timestamp is excluded from the fingerprint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &liveClient{
		conn:    conn,
		watched: mapset.NewThreadUnsafeSet[uint64](),
	}
	s.logger.Debug("live client connected", "remote", conn.RemoteAddr())

	done := make(chan struct{})
	go s.liveReadLoop(client, done)
	s.livePushLoop(r.Context().Done(), client, done)

	s.logger.Debug("live client disconnected", "remote", conn.RemoteAddr())
}

// liveReadLoop consumes watch/unwatch commands until the client goes away.
func (s *Server) liveReadLoop(client *liveClient, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("live read error", "error", err)
			}
			return
		}
		var cmd liveCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.logger.Warn("bad live command", "error", err)
			continue
		}
		client.apply(cmd)
	}
}

// livePushLoop sends a snapshot whenever the graph fingerprint changes. The
// fingerprint covers scopes and nodes only; the timestamp and counters change
// on every poll and would defeat the dedup.
func (s *Server) livePushLoop(ctx <-chan struct{}, client *liveClient, done <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastSum uint64
	for {
		select {
		case <-done:
			return
		case <-ctx:
			return
		case <-ticker.C:
		}

		snap := client.filter(s.snapshot())
		graph, err := json.Marshal(struct {
			Scopes []strand.ScopeInfo `json:"scopes"`
			Nodes  []strand.NodeInfo  `json:"nodes"`
		}{snap.Scopes, snap.Nodes})
		if err != nil {
			s.logger.Warn("snapshot encode failed", "error", err)
			continue
		}
		sum := xxhash.Sum64(graph)
		if sum == lastSum {
			continue
		}
		lastSum = sum

		payload, err := json.Marshal(snap)
		if err != nil {
			s.logger.Warn("snapshot encode failed", "error", err)
			continue
		}
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
