// Package metrics exposes the Prometheus instrumentation shared across the
// API services. All collectors are registered against the registry handed to
// New so tests can use isolated registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Outbound flight API calls by operation and outcome (ok, business_error,
	// transport_error, auth_error).
	TBORequests *prometheus.CounterVec

	// Upstream token cache effectiveness.
	TokenCacheHits   prometheus.Counter
	TokenCacheMisses prometheus.Counter

	// Cross-site handoff tickets.
	SSOTicketsIssued   prometheus.Counter
	SSOTicketsRedeemed prometheus.Counter
	SSOTicketsRejected *prometheus.CounterVec // reason: unauthorized, invalid, not_found, used, expired

	// Successful logins by method (password, google, sso).
	Logins *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TBORequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "tbo",
			Name:      "requests_total",
			Help:      "Outbound TBO flight API requests by operation and outcome.",
		}, []string{"op", "outcome"}),

		TokenCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "tbo",
			Name:      "token_cache_hits_total",
			Help:      "Authenticate calls served from the cached upstream token.",
		}),
		TokenCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "tbo",
			Name:      "token_cache_misses_total",
			Help:      "Authenticate calls that had to fetch a fresh upstream token.",
		}),

		SSOTicketsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "sso",
			Name:      "tickets_issued_total",
			Help:      "Handoff tickets minted for relying parties.",
		}),
		SSOTicketsRedeemed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "sso",
			Name:      "tickets_redeemed_total",
			Help:      "Handoff tickets successfully redeemed.",
		}),
		SSOTicketsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "sso",
			Name:      "tickets_rejected_total",
			Help:      "Handoff ticket redemptions rejected by reason.",
		}, []string{"reason"}),

		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plumtrips",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Successful logins by method.",
		}, []string{"method"}),
	}
}

// NewNop returns metrics backed by a throwaway registry, handy for tests and
// callers that don't care about scraping.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
