package web

import (
	"context"
	"net/http"

	"ratestream/internal/rates/hub"
	"ratestream/internal/rates/store"

	"go.uber.org/zap"
)

// Snapshotter is the read-only view into the pair store used by the REST
// boundary and by subscriber registration.
type Snapshotter interface {
	ReadAll() []store.PairState
}

// Server exposes the REST snapshot and the rates WebSocket stream.
type Server struct {
	snap   Snapshotter
	hub    *hub.Hub
	logger *zap.Logger
	http   *http.Server
}

func NewServer(addr string, snap Snapshotter, h *hub.Hub, logger *zap.Logger) *Server {
	s := &Server{snap: snap, hub: h, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/rates/current", s.handleCurrentRates)
	mux.HandleFunc("/ws/rates", s.handleRatesWS)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the route handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
