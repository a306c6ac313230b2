// Package api provides HTTP handlers and the main API server logic for TriagePipe.
//
// It exposes the single protocol endpoint for encrypted turns plus receipt
// and health endpoints. The API integrates with the protocol and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/TriagePipe/internal/protocol"
	"github.com/BTreeMap/TriagePipe/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Server wires the HTTP endpoints to the protocol service and store.
type Server struct {
	svc   *protocol.Service
	store store.Store
	addr  string
	http  *http.Server
}

// NewServer creates an API server. An empty addr falls back to DefaultAddr.
func NewServer(svc *protocol.Service, st store.Store, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{svc: svc, store: st, addr: addr}
}

// Handler returns the routed handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/turn", s.turnHandler)
	mux.HandleFunc("/receipts", s.receiptsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("TriagePipe API running", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
