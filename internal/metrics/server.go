package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	// Registers the pprof handlers on the default mux.
	_ "net/http/pprof"

	"github.com/rs/zerolog"
)

const readHeaderTimeout = 5 * time.Second

// Server serves a collector's /metrics endpoint and the pprof profiles
// on a debug listen address. It is meant for operator loopback use, not
// public exposure.
type Server struct {
	addr   string
	logger zerolog.Logger
	srv    *http.Server
	ln     net.Listener
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for server lifecycle events.
func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer builds a debug server for the collector. Start binds the
// address; an addr of host:0 picks an ephemeral port.
func NewServer(addr string, collector *Collector, opts ...ServerOption) *Server {
	s := &Server{
		addr:   addr,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	// The pprof handlers are registered on the default mux by the blank
	// import; delegate the /debug/ tree to it.
	mux.Handle("/debug/", http.DefaultServeMux)

	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Start binds the listen address and begins serving in the background.
// Bind failures are returned synchronously; later serve errors are
// logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind debug server %s: %w", s.addr, err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("debug server stopped")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("debug server listening")
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown debug server: %w", err)
	}
	return nil
}
