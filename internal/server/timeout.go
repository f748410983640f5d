package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the total time a request may spend in the gateway,
// covering the store round-trips and the upstream proxy call. Cancellation is
// cooperative: the context is cancelled and store/proxy calls observe it.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
