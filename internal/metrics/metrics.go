// Package metrics defines the Prometheus instrumentation for the stream core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action Queue Metrics
var (
	// ActionsTotal tracks processed queue actions by type and status.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_queue_actions_total",
			Help: "Processed queue actions by action type and status",
		},
		[]string{"action", "status"},
	)

	// ActionDuration tracks end-to-end action processing latency in seconds.
	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augeo_queue_action_duration_seconds",
			Help:    "Action processing duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"action"},
	)

	// QueueDepth tracks the current depth of the action channel.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "augeo_queue_depth",
			Help: "Current number of actions waiting in the queue",
		},
	)
)

// NewActionTimer starts a timer against ActionDuration for the given action
// type. Call ObserveDuration on the returned timer when the action settles.
func NewActionTimer(action string) *prometheus.Timer {
	return prometheus.NewTimer(ActionDuration.WithLabelValues(action))
}

// Store Metrics
var (
	// StoreFailuresTotal tracks persistence failures by operation.
	StoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_store_failures_total",
			Help: "Persistence operation failures by operation",
		},
		[]string{"operation"},
	)

	// StoreRetriesTotal tracks retried persistence operations.
	StoreRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "augeo_store_retries_total",
			Help: "Total retried persistence operations",
		},
	)

	// DBQueryDuration tracks query latency by statement kind.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augeo_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks failed queries by statement kind.
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_db_errors_total",
			Help: "Database query errors by statement kind",
		},
		[]string{"query"},
	)
)

// Ledger Metrics
var (
	// LedgerDeltasTotal tracks applied experience deltas by direction.
	LedgerDeltasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_ledger_deltas_total",
			Help: "Applied experience deltas by direction (credit/debit)",
		},
		[]string{"direction"},
	)
)

// Stream Connection Metrics
var (
	// StreamConnectionsCurrent tracks live underlying stream connections.
	StreamConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "augeo_stream_connections_current",
			Help: "Current number of live underlying stream connections",
		},
	)

	// StreamConnectsTotal tracks underlying connections ever created.
	StreamConnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "augeo_stream_connects_total",
			Help: "Total underlying stream connections created",
		},
	)

	// StreamOpenDedupsTotal tracks open requests absorbed by an existing
	// connection.
	StreamOpenDedupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "augeo_stream_open_dedups_total",
			Help: "Open requests that reused an already-live connection",
		},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks Redis operations by command and status.
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_redis_ops_total",
			Help: "Redis operations by command and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds.
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augeo_redis_op_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed Redis connection attempts.
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "augeo_redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks the current circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augeo_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Activity Feed Metrics
var (
	// FeedClientsCurrent tracks connected activity feed clients.
	FeedClientsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "augeo_feed_clients_current",
			Help: "Current number of connected activity feed clients",
		},
	)

	// FeedSlowClientsEvicted tracks slow feed clients evicted on full buffers.
	FeedSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "augeo_feed_slow_clients_evicted_total",
			Help: "Activity feed clients evicted due to full send buffers",
		},
	)

	// FeedRejectionsTotal tracks feed connections rejected by limits.
	FeedRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augeo_feed_rejections_total",
			Help: "Activity feed connections rejected by limit reason",
		},
		[]string{"reason"},
	)
)
