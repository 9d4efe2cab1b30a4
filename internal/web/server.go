// Package web serves the operator status API: gallery size, sink
// queue health and recent decisions. It is observation glue only; no
// attendance state is administered here.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/facemark/facemark/internal/engine"
	"github.com/facemark/facemark/internal/sink"
)

// Status is the payload of GET /api/status.
type Status struct {
	GallerySize     int        `json:"gallery_size"`
	LedgerSize      int        `json:"ledger_size"`
	Threshold       float64    `json:"threshold"`
	CooldownSeconds float64    `json:"cooldown_seconds"`
	Sink            sink.Stats `json:"sink"`
	UptimeSeconds   float64    `json:"uptime_seconds"`
}

// Server is the status HTTP server.
type Server struct {
	engine     *engine.Engine
	dispatcher *sink.Dispatcher
	decisions  *DecisionLog
	router     *chi.Mux
	httpServer *http.Server
	started    time.Time
}

// NewServer creates the status server on the given address.
func NewServer(addr string, eng *engine.Engine, d *sink.Dispatcher, decisions *DecisionLog) *Server {
	r := chi.NewRouter()

	s := &Server{
		engine:     eng,
		dispatcher: d,
		decisions:  decisions,
		router:     r,
		started:    time.Now(),
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/decisions", s.handleDecisions)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	zap.L().Info("starting status server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("shutting down status server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := Status{
		GallerySize:     s.engine.GallerySize(),
		LedgerSize:      s.engine.Ledger().Size(),
		Threshold:       s.engine.Threshold(),
		CooldownSeconds: s.engine.Cooldown().Seconds(),
		Sink:            s.dispatcher.Stats(),
		UptimeSeconds:   time.Since(s.started).Seconds(),
	}
	writeJSON(w, status)
}

func (s *Server) handleDecisions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.decisions.Recent())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writing response", zap.Error(err))
	}
}
