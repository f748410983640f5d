package admission

import (
	"context"
	"log/slog"

	"github.com/coregate/gateway/internal/metrics"
	"github.com/coregate/gateway/internal/store"
)

const revocationKeyPrefix = "blacklist:"

// Checker answers whether a token has been explicitly invalidated before its
// natural expiry (logout, forced invalidation). The pipeline only reads
// revocation entries; writing them is the auth service's job.
type Checker struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewChecker(s store.Store, logger *slog.Logger, m *metrics.Metrics) *Checker {
	return &Checker{store: s, logger: logger, metrics: m}
}

// IsRevoked reports whether a non-empty revocation entry exists for tokenID.
// A store failure resolves to "not revoked": failing closed would turn a
// single infrastructure outage into a total authentication outage, which is
// a worse trade than briefly honoring logged-out tokens that are still
// cryptographically valid anyway.
func (c *Checker) IsRevoked(ctx context.Context, tokenID string) bool {
	value, err := c.store.Get(ctx, revocationKeyPrefix+tokenID)
	if err != nil {
		c.logger.Warn("revocation store unavailable, treating token as not revoked",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		c.metrics.StoreErrors.WithLabelValues("revocation").Inc()
		return false
	}
	return value != ""
}
