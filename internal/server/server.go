// Package server exposes the import pipeline over HTTP: the two-phase
// import endpoint, a manual list endpoint, health, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caseward/manualforge/internal/importer"
	"github.com/caseward/manualforge/internal/store"
)

// ImportService is the importer surface handlers consume.
type ImportService interface {
	Preview(ctx context.Context, doc importer.Document, opts importer.Options) (*importer.Result, error)
	Commit(ctx context.Context, doc importer.Document, opts importer.Options, actorID string) (string, error)
}

// ManualLister is the store surface handlers consume.
type ManualLister interface {
	ListManuals(ctx context.Context) ([]store.Manual, error)
}

// Server wires handlers, middleware, and the HTTP listener.
type Server struct {
	importer     ImportService
	store        ManualLister
	defaultActor string
	registry     *prom.Registry
	httpServer   *http.Server
}

// New builds a server listening on addr. A nil registry gets a private
// one, keeping tests isolated.
func New(addr string, imp ImportService, st ManualLister, defaultActor string, registry *prom.Registry) *Server {
	if registry == nil {
		registry = prom.NewRegistry()
	}
	s := &Server{
		importer:     imp,
		store:        st,
		defaultActor: defaultActor,
		registry:     registry,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/manuals", s.handleManuals)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// logRequests is the access-log middleware.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
