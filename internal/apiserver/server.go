// Package apiserver assembles the emulator's HTTP router and runs it.
package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dcm-project/policy-sdk/internal/config"
	handlers "github.com/dcm-project/policy-sdk/internal/handlers/v1"
	"github.com/dcm-project/policy-sdk/internal/logging"
	"github.com/dcm-project/policy-sdk/internal/metrics"
	"github.com/dcm-project/policy-sdk/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	readHeaderTimeout       = 10 * time.Second
)

type Server struct {
	listener net.Listener
	handler  http.Handler
}

// New creates the server. m may be nil, in which case /metrics is not served.
func New(cfg *config.Config, listener net.Listener, handler *handlers.Handler, m *metrics.Metrics) (*Server, error) {
	router, err := NewRouter(cfg, handler, m)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		handler:  router,
	}, nil
}

// NewRouter builds the full middleware stack around the API routes. Tests
// mount it on an httptest server.
func NewRouter(cfg *config.Config, handler *handlers.Handler, m *metrics.Metrics) (http.Handler, error) {
	requestValidator, err := validation.NewRequestValidator(handlers.ValidationError)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware(log.Logger))
	if m != nil {
		router.Use(m.Middleware)
	}
	router.Use(middleware.Recoverer)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if m != nil {
		router.Handle("/metrics", m.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(handlers.RequireToken(cfg.Service.APIToken))
		handler.Register(r.With(requestValidator.Middleware))
	})

	return router, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.listener.Addr().String()).Msg("policy API listening")
		if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down policy API")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
