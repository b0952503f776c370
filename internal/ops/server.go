// Package ops - server.go exposes the operational HTTP surface.
//
// DESIGN: Read-only endpoints on a dedicated port, separate from the
// watched traffic:
//   - GET /healthz  liveness probe, always 200 once the process is up
//   - GET /status   JSON snapshot of the engine state
//   - GET /metrics  Prometheus exposition
//   - GET /alerts   recent alert history (requires a history store)
//
// The server never mutates engine state. Maintenance mode is toggled
// through configuration, not HTTP.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/poolwatch/poolwatch/internal/engine"
	"github.com/poolwatch/poolwatch/internal/history"
)

// recentAlertLimit caps the /alerts response size.
const recentAlertLimit = 50

// Server serves the operational endpoints.
type Server struct {
	engine   *engine.Engine
	hist     *history.Store
	gatherer prometheus.Gatherer
	httpSrv  *http.Server
}

// NewServer builds the ops server. hist may be nil; /alerts then reports
// that history is disabled.
func NewServer(port int, eng *engine.Engine, hist *history.Store, gatherer prometheus.Gatherer) *Server {
	s := &Server{engine: eng, hist: hist, gatherer: gatherer}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /alerts", s.handleAlerts)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("ops server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	if s.hist == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"enabled": false,
			"alerts":  []history.Entry{},
		})
		return
	}
	entries, err := s.hist.Recent(recentAlertLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read alert history")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history read failed"})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": true,
		"alerts":  entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode ops response")
	}
}
