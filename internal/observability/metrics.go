// Package observability provides Prometheus metrics for the lakefence
// server. The context-store metrics exist to catch cleanup-path bugs in
// production: a non-zero stale count, a growing active gauge, or any purged
// orphans all point at an invocation whose final clear never ran.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueriesTotal counts secure-executor invocations by outcome.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakefence_queries_total",
			Help: "Secure executor invocations",
		},
		[]string{"status"},
	)

	// QueryDuration records end-to-end Execute latency in seconds.
	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lakefence_query_duration_seconds",
			Help:    "Execute latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StaleContextsTotal counts stale tenant records found by the defensive
	// clear. Execution proceeds safely, but each hit means a prior
	// invocation's cleanup failed.
	StaleContextsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakefence_stale_contexts_total",
			Help: "Stale tenant contexts found and cleared",
		},
	)

	// OrphanedContextsPurgedTotal counts context records removed by the
	// sweeper.
	OrphanedContextsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakefence_orphaned_contexts_purged_total",
			Help: "Orphaned tenant contexts purged by the sweeper",
		},
	)

	// GeneratorRequestsTotal counts NL-to-SQL generator calls by outcome.
	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakefence_generator_requests_total",
			Help: "Query generator calls",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		StaleContextsTotal,
		OrphanedContextsPurgedTotal,
		GeneratorRequestsTotal,
	)
}

// RegisterActiveContexts exposes the context store's current record count
// as a gauge. Sampled at scrape time; outside in-flight invocations the
// value should always be zero.
func RegisterActiveContexts(count func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "lakefence_active_tenant_contexts",
			Help: "Tenant context records currently installed",
		},
		count,
	))
}
