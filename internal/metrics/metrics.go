// Package metrics holds the Prometheus collectors for membership
// resolution and store access.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution paths recorded by ContainsTotal.
const (
	PathIncompatible = "incompatible"
	PathNoIdentity   = "no_identity"
	PathCache        = "cache"
	PathQuery        = "query"
	PathError        = "error"
)

var (
	// ContainsTotal counts membership checks by the path that answered them.
	ContainsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazyset_contains_total",
			Help: "Total number of membership checks by resolution path",
		},
		[]string{"path", "result"},
	)
	// QueriesTotal counts statements executed against the store.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazyset_store_queries_total",
			Help: "Total number of statements executed against the store",
		},
		[]string{"kind", "status"},
	)
	// QueryDuration is the latency of store statements.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lazyset_store_query_duration_seconds",
			Help:    "Store statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	// MaterializationsTotal counts result caches built, by shape.
	MaterializationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazyset_materializations_total",
			Help: "Total number of collection result caches built",
		},
		[]string{"shape"},
	)
)
