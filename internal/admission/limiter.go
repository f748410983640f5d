package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/coregate/gateway/internal/metrics"
	"github.com/coregate/gateway/internal/store"
)

const rateLimitKeyPrefix = "ratelimit:"

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed bool
	// RetryAfter advertises the window length to rejected clients.
	RetryAfter time.Duration
}

// Limiter admits or rejects requests per client identity using a fixed
// window counter in the shared store.
type Limiter struct {
	store   store.Store
	max     int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLimiter(s store.Store, max int, window time.Duration, logger *slog.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{store: s, max: max, window: window, logger: logger, metrics: m}
}

// Admit increments the client's window counter and rejects once the count
// exceeds the limit. If the store is unreachable the limiter fails open:
// the revocation check and the business logic behind it still bound risk,
// and availability wins over strict enforcement here.
func (l *Limiter) Admit(ctx context.Context, clientID string) Decision {
	count, err := l.store.Incr(ctx, rateLimitKeyPrefix+clientID, l.window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, admitting request",
			slog.String("client", clientID),
			slog.String("error", err.Error()),
		)
		l.metrics.StoreErrors.WithLabelValues("ratelimit").Inc()
		return Decision{Allowed: true}
	}

	if count > int64(l.max) {
		return Decision{Allowed: false, RetryAfter: l.window}
	}
	return Decision{Allowed: true}
}
