// Package metrics exposes the Prometheus instruments shared across the
// access layer. Collectors are registered on the default registry; serving
// them is left to the embedding application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts routed operations by provider type and operation name
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_requests_total",
		Help: "Routed media operations by provider type and operation.",
	}, []string{"provider_type", "operation"})

	// AuthRefreshes counts credential exchanges by provider type and outcome
	AuthRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medley_auth_refresh_total",
		Help: "Bearer token refresh attempts by provider type and outcome.",
	}, []string{"provider_type", "outcome"})

	// RoutingMisses counts by-URI operations that matched no provider
	RoutingMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medley_routing_misses_total",
		Help: "Operations whose URIs matched no configured provider.",
	})
)
