// Package admission implements the request admission pipeline: a fixed,
// ordered chain of checks every inbound request passes before it reaches a
// backend service. The order is a hard contract: rate limiting precedes
// authentication so unauthenticated flooding cannot exhaust cryptographic
// work, path exemption precedes token extraction so public endpoints never
// require a token, and the revocation lookup runs only after a token has
// already verified so no store round-trip is spent on garbage input.
package admission

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/coregate/gateway/internal/metrics"
)

const (
	bearerPrefix = "Bearer "

	// Identity headers synthesized for downstream services.
	HeaderUserID   = "X-User-Id"
	HeaderEmail    = "X-User-Email"
	HeaderNickname = "X-User-Nickname"
)

// Rejection messages, one per admission-level outcome.
const (
	msgRateLimited  = "rate limit exceeded, retry later"
	msgMissingToken = "missing token"
	msgInvalidToken = "invalid token"
	msgRevokedToken = "revoked token"
)

type claimsContextKey struct{}

// GetClaims retrieves the verified identity from context.
// Returns nil on exempt paths and outside the pipeline.
func GetClaims(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsContextKey{}).(*Claims); ok {
		return c
	}
	return nil
}

// Pipeline wires the limiter, verifier and revocation checker into a single
// middleware. It holds no per-request state; each request progresses through
// the stages independently on its own goroutine.
type Pipeline struct {
	limiter     *Limiter
	verifier    *Verifier
	checker     *Checker
	publicPaths []string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewPipeline(l *Limiter, v *Verifier, c *Checker, publicPaths []string, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		limiter:     l,
		verifier:    v,
		checker:     c,
		publicPaths: publicPaths,
		logger:      logger,
		metrics:     m,
	}
}

// Middleware runs the admission stages in order, short-circuiting on the
// first rejection. Exactly one terminal outcome is produced per request:
// forward with identity headers, forward without (exempt path), 429, or 401.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Never trust caller-supplied identity headers, whatever the path.
		stripIdentityHeaders(r)

		decision := p.limiter.Admit(r.Context(), ClientIP(r))
		if !decision.Allowed {
			p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictRateLimited).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			writeRejection(w, http.StatusTooManyRequests, msgRateLimited)
			return
		}

		if p.isPublicPath(r.URL.Path) {
			p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictExempt).Inc()
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := extractBearer(r)
		if !ok {
			p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictMissingToken).Inc()
			writeRejection(w, http.StatusUnauthorized, msgMissingToken)
			return
		}

		claims, err := p.verifier.Verify(raw)
		if err != nil {
			p.logger.Debug("token verification failed", slog.String("error", err.Error()))
			p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictInvalidToken).Inc()
			writeRejection(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		if p.checker.IsRevoked(r.Context(), claims.TokenID) {
			p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictRevoked).Inc()
			writeRejection(w, http.StatusUnauthorized, msgRevokedToken)
			return
		}

		p.metrics.AdmissionTotal.WithLabelValues(metrics.VerdictAllowed).Inc()

		r.Header.Set(HeaderUserID, strconv.FormatInt(claims.UserID, 10))
		r.Header.Set(HeaderEmail, claims.Email)
		r.Header.Set(HeaderNickname, claims.Nickname)

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *Pipeline) isPublicPath(path string) bool {
	for _, prefix := range p.publicPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func extractBearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", false
	}
	return auth[len(bearerPrefix):], true
}

func stripIdentityHeaders(r *http.Request) {
	r.Header.Del(HeaderUserID)
	r.Header.Del(HeaderEmail)
	r.Header.Del(HeaderNickname)
}
