// Package api exposes repolens over HTTP for local tooling. Batch analysis
// streams progress as NDJSON; everything else is plain JSON.
package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"repolens/internal/batch"
	"repolens/internal/config"
	"repolens/internal/index"
	"repolens/internal/logging"
)

// Server is the HTTP API server.
type Server struct {
	router       *http.ServeMux
	server       *http.Server
	addr         string
	logger       *logging.Logger
	orchestrator *batch.Orchestrator
	index        *index.Index
	cfg          config.BatchConfig
}

// NewServer creates an HTTP server over an orchestrator and index.
func NewServer(addr string, orch *batch.Orchestrator, ix *index.Index, cfg config.BatchConfig, logger *logging.Logger) *Server {
	s := &Server{
		addr:         addr,
		logger:       logger,
		orchestrator: orch,
		index:        ix,
		cfg:          cfg,
		router:       http.NewServeMux(),
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.applyMiddleware(s.router),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/analyze", s.handleAnalyze)
	s.router.HandleFunc("/api/batch", s.handleBatch)
	s.router.HandleFunc("/api/repositories", s.handleRepositories)
	s.router.HandleFunc("/api/search", s.handleSearch)
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = s.recoveryMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	return handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("HTTP request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     wrapped.status,
			"durationMs": time.Since(start).Milliseconds(),
			"requestID":  reqID,
		})
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic recovered", map[string]interface{}{
					"error": fmt.Sprintf("%v", rec),
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				})
				writeError(w, fmt.Errorf("%v", rec), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so NDJSON streaming works through the
// middleware chain.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
