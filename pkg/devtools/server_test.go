package devtools

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strand-ui/strand/pkg/strand"
)

// newTestGraph builds a runtime with one cell, one memo, and one effect.
func newTestGraph(t *testing.T, opts ...strand.RuntimeOption) (*strand.Runtime, *strand.Cell[int]) {
	t.Helper()
	rt := strand.NewRuntime(opts...)
	t.Cleanup(rt.Dispose)

	count := strand.NewCell(rt, 0, strand.WithLabel("count"))
	doubled := strand.NewMemo(rt, func() int { return count.Get() * 2 })
	strand.CreateEffect(rt, func() strand.Cleanup {
		_ = doubled.Get()
		return nil
	})
	return rt, count
}

func TestServerGraphEndpoint(t *testing.T) {
	rt, _ := newTestGraph(t)
	srv := httptest.NewServer(NewServer(rt).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/graph")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var snap strand.GraphSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Len(t, snap.Nodes, 3)
	assert.NotEmpty(t, snap.Scopes)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestServerStatsEndpoint(t *testing.T) {
	rt, count := newTestGraph(t)
	count.Set(1)

	srv := httptest.NewServer(NewServer(rt).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats strand.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, uint64(1), stats.Writes)
	assert.Equal(t, uint64(2), stats.EffectRuns)
}

func TestServerHistoryEndpoint(t *testing.T) {
	rec := NewRecorder(16)
	rt, count := newTestGraph(t, strand.WithWriteHook(rec.Hook))
	count.Set(1)
	count.Set(2)

	srv := httptest.NewServer(NewServer(rt, WithRecorder(rec)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var events []strand.WriteEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 2)
	assert.Equal(t, "count", events[0].Label)
}

func TestServerHistoryWithoutRecorder(t *testing.T) {
	rt, _ := newTestGraph(t)
	srv := httptest.NewServer(NewServer(rt).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerMetricsEndpoint(t *testing.T) {
	rt, count := newTestGraph(t)
	count.Set(1)

	srv := httptest.NewServer(NewServer(rt).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "strand_writes_total 1")
	assert.Contains(t, string(body), "strand_effect_runs_total")
}

func TestServerLiveStream(t *testing.T) {
	rt, count := newTestGraph(t)
	srv := httptest.NewServer(NewServer(rt,
		WithPushInterval(10*time.Millisecond),
		WithCheckOrigin(func(*http.Request) bool { return true }),
	).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap strand.GraphSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Nodes, 3)

	// An unchanged graph must not be re-sent; a structural change must be.
	rt.Dispatch(func() {
		strand.CreateEffect(rt, func() strand.Cleanup {
			_ = count.Get()
			return nil
		})
	})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Nodes, 4)
}

func TestServerLiveWatchFilter(t *testing.T) {
	rt, count := newTestGraph(t)
	srv := httptest.NewServer(NewServer(rt,
		WithPushInterval(10*time.Millisecond),
		WithCheckOrigin(func(*http.Request) bool { return true }),
	).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var id uint64
	rt.Dispatch(func() { id = count.ID() })
	require.NoError(t, conn.WriteJSON(liveCommand{Watch: []uint64{id}}))

	// Read until the filter takes effect; the first frame may predate it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "filtered frame never arrived")
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var snap strand.GraphSnapshot
		require.NoError(t, json.Unmarshal(data, &snap))
		if len(snap.Nodes) == 1 {
			assert.Equal(t, id, snap.Nodes[0].ID)
			return
		}
	}
}
