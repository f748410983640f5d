package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coregate/gateway/internal/admission"
	"github.com/coregate/gateway/internal/config"
	"github.com/coregate/gateway/internal/metrics"
	"github.com/coregate/gateway/internal/store"
)

func newTestServer(t *testing.T, backend http.Handler) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	kv := store.NewMemory()

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 0, ShutdownTimeout: time.Second},
		RateLimit: config.RateLimitConfig{MaxRequests: 100, Window: time.Minute},
		Auth: config.AuthConfig{
			Secret:      "test-secret",
			PublicPaths: []string{"/health", "/metrics", "/docs"},
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	pipeline := admission.NewPipeline(
		admission.NewLimiter(kv, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger, m),
		admission.NewVerifier(cfg.Auth.Secret),
		admission.NewChecker(kv, logger, m),
		cfg.Auth.PublicPaths,
		logger,
		m,
	)

	if backend == nil {
		backend = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	return New(cfg, logger, pipeline, backend, m, registry)
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %q, want status ok payload", rec.Body.String())
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	// Generate one observation so the exposition isn't empty.
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gateway_admission_total") {
		t.Error("metrics exposition missing gateway_admission_total")
	}
}

func TestServerProtectedRouteRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/albums", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServerRequestIDEcho(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID response header not set")
	}

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, r)

	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("X-Request-ID = %q, want upstream-id reused", got)
	}
}

func TestServerCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	r := httptest.NewRequest("OPTIONS", "/api/v1/albums", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
	}
}

func TestServerCORSUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, nil)

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want unset for unknown origin", got)
	}
}
