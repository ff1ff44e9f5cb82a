package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"tripmate-ai/internal/infra/config"
)

// Server is the HTTP gateway. Chat turns stream over SSE; the rest of
// the API is plain JSON.
type Server struct {
	handler   *Handler
	logger    *slog.Logger
	cfg       config.ServerConfig
	httpSrv   *http.Server
	boundAddr string
}

// NewServer creates a gateway server.
func NewServer(handler *Handler, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{handler: handler, logger: logger, cfg: cfg}
}

// Start begins serving. Blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	s.handler.Register(mux)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	// No WriteTimeout: chat turns hold the response open while the
	// model streams.
	s.httpSrv = &http.Server{
		Handler:     mux,
		ReadTimeout: s.cfg.ReadTimeout,
	}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the actual address the server bound to. Only valid
// after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }
