package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newUpstream returns a test server that echoes its received path and query.
func newUpstream(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()

	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestProxyRoutesByPrefix(t *testing.T) {
	upstream, seen := newUpstream(t)

	p, err := New([]Route{
		{Prefix: "/api/ml/", Upstream: upstream.URL},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/api/ml/titanic?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen.URL.Path != "/api/ml/titanic" {
		t.Errorf("upstream path = %q, want /api/ml/titanic", seen.URL.Path)
	}
	if seen.URL.RawQuery != "limit=5" {
		t.Errorf("upstream query = %q, want limit=5", seen.URL.RawQuery)
	}
}

func TestProxyStripPrefix(t *testing.T) {
	upstream, seen := newUpstream(t)

	p, err := New([]Route{
		{Prefix: "/api/ml/", Upstream: upstream.URL, StripPrefix: true},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/api/ml/titanic", nil))

	if seen.URL.Path != "/titanic" {
		t.Errorf("upstream path = %q, want /titanic", seen.URL.Path)
	}
}

func TestProxyLongestPrefixWins(t *testing.T) {
	general, seenGeneral := newUpstream(t)
	specific, seenSpecific := newUpstream(t)

	p, err := New([]Route{
		{Prefix: "/api/", Upstream: general.URL},
		{Prefix: "/api/ml/", Upstream: specific.URL},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/api/ml/grade", nil))

	if seenSpecific.URL == nil {
		t.Fatal("specific upstream not hit")
	}
	if seenGeneral.URL != nil {
		t.Error("general upstream hit, want specific route to win")
	}
}

func TestProxyNoRoute(t *testing.T) {
	p, err := New(nil, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/nowhere", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Error("success = true, want false")
	}
}

func TestProxyUpstreamDown(t *testing.T) {
	// Reserve a port then close it so the connection is refused.
	dead := httptest.NewServer(http.NotFoundHandler())
	addr := dead.URL
	dead.Close()

	p, err := New([]Route{
		{Prefix: "/", Upstream: addr},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest("GET", "/anything", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestProxyRejectsBadUpstream(t *testing.T) {
	tests := []struct {
		name     string
		upstream string
	}{
		{name: "relative url", upstream: "/not-absolute"},
		{name: "missing scheme", upstream: "localhost:8081"},
		{name: "garbage", upstream: "://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Route{{Prefix: "/", Upstream: tt.upstream}}, discardLogger())
			if err == nil {
				t.Errorf("New(%q) error = nil, want error", tt.upstream)
			}
		})
	}
}
