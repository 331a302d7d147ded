// Package server is the HTTP/JSON front end of a proofreading session.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janelia-flyem/NeuroProof-sub002/internal/mcp"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

// Server holds the HTTP interface and the session it serves.
type Server struct {
	Session *session.Session

	httpServer  *http.Server
	taskManager *TaskManager
	authToken   string
	logger      *slog.Logger
}

// NewServer builds the HTTP server for sess. The session must be open.
func NewServer(sess *session.Session, cfg session.HTTPConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Session:     sess,
		taskManager: NewTaskManager(),
		authToken:   cfg.AuthToken,
		logger:      logger,
	}

	// Setup HTTP
	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	mcpServer := mcp.NewMCPServer(sess)
	mux.Handle("/mcp", sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return mcpServer
	}, nil))

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	// Recovery must be outer-most to catch everything.

	var handler http.Handler = mux

	// 1. Auth (Inner)
	handler = s.authMiddleware(handler)

	// 2. Logging (Middle) - Logs duration and status
	handler = s.LoggingMiddleware(handler)

	// 3. Recovery (Outer) - Catches panics
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and waits for running estimate tasks.
// It does NOT close the session: the caller owns its lifecycle.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown of HTTP server")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	s.taskManager.Wait()
	return err
}
