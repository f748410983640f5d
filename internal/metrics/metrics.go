// Package metrics defines the Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
// Pass to components that need to record metrics.
type Metrics struct {
	AdmissionTotal  *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// Admission verdict labels.
const (
	VerdictAllowed      = "allowed"
	VerdictExempt       = "exempt"
	VerdictRateLimited  = "rate_limited"
	VerdictMissingToken = "missing_token"
	VerdictInvalidToken = "invalid_token"
	VerdictRevoked      = "revoked"
)

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AdmissionTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "admission_total",
				Help:      "Admission pipeline outcomes by verdict",
			},
			[]string{"verdict"},
		),
		StoreErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "store_errors_total",
				Help:      "Shared store failures resolved fail-open, by operation",
			},
			[]string{"op"}, // op=ratelimit/revocation
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests and
// callers that don't care about instrumentation.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
