// Package metrics exposes the gateway's Prometheus collectors. Collectors
// are registered on the default registry; serve them with promhttp on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts staff and patient login attempts by outcome
	// (success, invalid_credentials, bad_request, upstream_error).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_attempts_total",
		Help: "Login attempts through the gateway.",
	}, []string{"kind", "outcome"})

	// TokenRefreshes counts refresh-on-401 attempts by outcome
	// (success, rejected, transport_error).
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_token_refreshes_total",
		Help: "Access-token refresh attempts triggered by upstream 401s.",
	}, []string{"outcome"})

	// AuthzDenials counts route-guard denials per declared capability.
	AuthzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_authz_denials_total",
		Help: "Requests blocked by the authorization policy.",
	}, []string{"capability"})

	// UpstreamDuration observes backend round-trip latency.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_upstream_request_seconds",
		Help:    "Latency of proxied backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// SessionsPurged counts expired sessions removed by the janitor.
	SessionsPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_sessions_purged_total",
		Help: "Expired sessions removed by background cleanup.",
	}, []string{"kind"})
)
