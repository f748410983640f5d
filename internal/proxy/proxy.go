// Package proxy forwards admitted requests to the backend services behind
// the gateway, selected by path prefix.
package proxy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"
)

type route struct {
	prefix      string
	stripPrefix bool
	handler     *httputil.ReverseProxy
}

// Proxy routes requests to upstreams by longest matching path prefix.
type Proxy struct {
	routes []route
	logger *slog.Logger
}

// Route declares one upstream mapping.
type Route struct {
	Prefix      string
	Upstream    string
	StripPrefix bool
}

func New(routes []Route, logger *slog.Logger) (*Proxy, error) {
	p := &Proxy{logger: logger}

	for _, rt := range routes {
		target, err := url.Parse(rt.Upstream)
		if err != nil {
			return nil, fmt.Errorf("parse upstream %q: %w", rt.Upstream, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("upstream %q must be an absolute URL", rt.Upstream)
		}

		rp := &httputil.ReverseProxy{
			Rewrite: rewriteFunc(target, rt.Prefix, rt.StripPrefix),
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				logger.Error("upstream unreachable",
					slog.String("path", r.URL.Path),
					slog.String("upstream", target.String()),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusBadGateway, "upstream service unavailable")
			},
		}
		p.routes = append(p.routes, route{prefix: rt.Prefix, stripPrefix: rt.StripPrefix, handler: rp})
	}

	// Longest prefix wins
	sort.Slice(p.routes, func(i, j int) bool {
		return len(p.routes[i].prefix) > len(p.routes[j].prefix)
	})

	return p, nil
}

func rewriteFunc(target *url.URL, prefix string, strip bool) func(*httputil.ProxyRequest) {
	return func(pr *httputil.ProxyRequest) {
		pr.SetURL(target)
		pr.SetXForwarded()
		if strip {
			trimmed := strings.TrimPrefix(pr.In.URL.Path, strings.TrimSuffix(prefix, "/"))
			if trimmed == "" {
				trimmed = "/"
			}
			pr.Out.URL.Path = singleJoin(target.Path, trimmed)
		} else {
			pr.Out.URL.Path = singleJoin(target.Path, pr.In.URL.Path)
		}
		pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range p.routes {
		if strings.HasPrefix(r.URL.Path, rt.prefix) {
			rt.handler.ServeHTTP(w, r)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no route for path")
}

func singleJoin(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
