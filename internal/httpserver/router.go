// Package httpserver exposes liveness, readiness and Prometheus metrics.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkch/paybot/pkg/logger"
)

type RouterParams struct {
	Env      string
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Checks   map[string]Pinger
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		recoverer(p.Logger),
		requestID(p.Logger),
	)
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthLive(p.Env))
		r.Get("/ready", healthReady(p.Env, p.Logger, p.Checks))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Server runs the router on addr until Shutdown.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

func NewServer(addr string, handler http.Handler, logg *logger.Logger) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("listen address required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logg: logg,
	}, nil
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logg.Info(s.logg.WithField(ctx, "addr", s.srv.Addr), "http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
