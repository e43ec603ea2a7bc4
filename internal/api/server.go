// Package api serves the status endpoints of the watcher: health, metrics and
// the loaded trigger table.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/antredesloutres/otternel/internal/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Checker reports whether a dependency is usable
type Checker func(ctx context.Context) error

// TriggerLister exposes the compiled triggers
type TriggerLister interface {
	Triggers() []trigger.Trigger
}

// Server is the status HTTP server
type Server struct {
	addr       string
	router     chi.Router
	httpServer *http.Server

	triggers TriggerLister
	checks   map[string]Checker
}

// New creates a server listening on addr.
// gatherer backs /metrics; checks are run by /health.
func New(addr string, triggers TriggerLister, gatherer prometheus.Gatherer, checks map[string]Checker) *Server {
	s := &Server{
		addr:     addr,
		triggers: triggers,
		checks:   checks,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/triggers", s.handleTriggers)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Router returns the underlying router, useful for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().Str("addr", s.addr).Msg("Status API started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}
	log.Info().Msg("Status API stopped")
	return nil
}
