package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"swapscope/internal/model"
)

// SnapshotProvider serves the current watcher state.
type SnapshotProvider interface {
	Snapshot() model.Snapshot
}

// Server exposes the dashboard page and JSON API.
type Server struct {
	provider    SnapshotProvider
	broadcaster *Broadcaster
	logger      *zap.Logger
	mux         *http.ServeMux
	httpServer  *http.Server
}

func New(addr string, provider SnapshotProvider, broadcaster *Broadcaster, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		provider:    provider,
		broadcaster: broadcaster,
		logger:      logger,
		mux:         mux,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/series", s.handleSeries)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/healthz", s.handleHealth)
	if broadcaster != nil {
		mux.HandleFunc("/ws", broadcaster.Handler())
	}

	return s
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.provider.Snapshot())
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.provider.Snapshot().Series)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	trades := s.provider.Snapshot().RecentTrades
	if len(trades) > limit {
		trades = trades[:limit]
	}
	s.writeJSON(w, trades)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

// Start begins listening; blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}
