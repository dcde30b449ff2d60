package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strand-ui/strand/pkg/strand"
)

// ServerConfig configures a devtools Server.
type ServerConfig struct {
	// Logger for request and stream logging. Default: slog.Default().
	Logger *slog.Logger

	// Recorder supplies the write history for GET /history. Optional.
	Recorder *Recorder

	// Registry backs GET /metrics. The runtime collector is registered on it.
	// Default: a fresh registry.
	Registry *prometheus.Registry

	// PushInterval is how often /live clients are polled for a changed graph.
	// Default: 250ms.
	PushInterval time.Duration

	// CheckOrigin overrides the websocket origin check. Default: same-origin
	// per gorilla's default.
	CheckOrigin func(*http.Request) bool
}

// ServerOption configures a devtools Server.
type ServerOption func(*ServerConfig)

// WithLogger sets the server's structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
	}
}

// WithRecorder attaches a write-history recorder, served at GET /history.
func WithRecorder(r *Recorder) ServerOption {
	return func(c *ServerConfig) {
		c.Recorder = r
	}
}

// WithRegistry sets the Prometheus registry backing GET /metrics.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(c *ServerConfig) {
		c.Registry = reg
	}
}

// WithPushInterval sets the live-stream poll interval.
func WithPushInterval(d time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if d > 0 {
			c.PushInterval = d
		}
	}
}

// WithCheckOrigin sets the websocket origin check for GET /live.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(c *ServerConfig) {
		c.CheckOrigin = fn
	}
}

// Server serves a runtime's diagnostic surface over HTTP:
//
//	GET /graph    JSON graph snapshot
//	GET /history  recorded write events (requires WithRecorder)
//	GET /stats    runtime counters
//	GET /metrics  Prometheus exposition
//	GET /live     websocket stream of graph snapshots
type Server struct {
	rt       *strand.Runtime
	logger   *slog.Logger
	recorder *Recorder
	registry *prometheus.Registry
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewServer creates a devtools server for rt and registers the runtime's
// metrics collector on the configured registry.
func NewServer(rt *strand.Runtime, opts ...ServerOption) *Server {
	config := ServerConfig{
		PushInterval: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	config.Registry.MustRegister(NewCollector(rt))

	return &Server{
		rt:       rt,
		logger:   config.Logger.With("component", "devtools"),
		recorder: config.Recorder,
		registry: config.Registry,
		interval: config.PushInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/graph", s.handleGraph)
	r.Get("/history", s.handleHistory)
	r.Get("/stats", s.handleStats)
	r.Get("/live", s.handleLive)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// snapshot takes a graph snapshot on the runtime goroutine.
func (s *Server) snapshot() strand.GraphSnapshot {
	var snap strand.GraphSnapshot
	s.rt.Dispatch(func() {
		snap = s.rt.Snapshot()
	})
	return snap
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		http.Error(w, "no recorder configured", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.recorder.Events())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.rt.Stats())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}
