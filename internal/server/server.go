// Package server assembles the gateway's HTTP surface: the middleware chain,
// the admission pipeline, the operational endpoints and the upstream proxy.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/coregate/gateway/internal/admission"
	"github.com/coregate/gateway/internal/config"
	"github.com/coregate/gateway/internal/metrics"
)

type Server struct {
	Router *chi.Mux
	port   int
	srv    *http.Server

	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New builds the router. Middleware order matters: request ID and logging
// wrap everything, then panic recovery, then the admission pipeline, with
// the proxy as the terminal handler. Rate limiting runs before any
// authentication work inside the pipeline itself.
func New(cfg *config.Config, logger *slog.Logger, pipeline *admission.Pipeline, backend http.Handler, m *metrics.Metrics, registry *prometheus.Registry) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Recoverer)
	r.Use(durationMiddleware(m))
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "gateway")
	})
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(pipeline.Middleware)

	// Operational endpoints sit behind the pipeline but on exempt paths,
	// so they answer without credentials yet still count against the
	// caller's rate limit window.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_, _ = w.Write([]byte(`{"status":"ok","service":"gateway"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Handle("/*", backend)

	return &Server{
		Router:          r,
		port:            cfg.Server.Port,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logger,
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	s.logger.Info("starting server", slog.Int("port", s.port))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func durationMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
