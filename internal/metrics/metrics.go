// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Query generation
	QueriesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_queries_generated_total",
			Help: "Resource paths produced by the query generator",
		},
		[]string{"kind"}, // analytics, sql_view, search
	)

	CompilationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashforge_compilation_errors_total",
			Help: "Indicator sets rejected before any backend request",
		},
	)

	ExpressionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_expression_errors_total",
			Help: "Expression evaluations recovered with a sentinel value",
		},
		[]string{"stage"}, // sql_view, arithmetic
	)

	// Backend requests
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_backend_requests_total",
			Help: "Requests sent to data sources",
		},
		[]string{"route", "status"}, // route: current, external, search, datastore
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashforge_backend_request_duration_seconds",
			Help:    "Backend request latency",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route"},
	)

	// Result reduction
	NormalizationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_normalization_fallbacks_total",
			Help: "Payloads replaced by the zero-row fallback",
		},
		[]string{"kind"},
	)

	UnmatchedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashforge_unmatched_rows_total",
			Help: "Numerator rows without a denominator row of the same signature",
		},
	)

	DenominatorDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashforge_denominator_drops_total",
			Help: "Failed denominator requests resolved as numerator-only",
		},
	)

	// Payload cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_cache_hits_total",
			Help: "Payload cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_cache_misses_total",
			Help: "Payload cache misses",
		},
		[]string{"cache_type"},
	)

	SharedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashforge_shared_fetches_total",
			Help: "Requests that joined an identical in-flight request",
		},
	)

	// Resolution and publishing
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_resolutions_total",
			Help: "Visualization resolutions by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: published, failed, stale
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashforge_resolution_duration_seconds",
			Help:    "End-to-end visualization resolution latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"trigger"},
	)

	StoreEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashforge_store_events_dropped_total",
			Help: "Store updates dropped because a subscriber was full",
		},
	)

	// Scheduler
	WatchedVisualizations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashforge_watched_visualizations",
			Help: "Visualizations registered with the refetch scheduler",
		},
	)

	SchedulerSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashforge_scheduler_skips_total",
			Help: "Scheduled runs skipped",
		},
		[]string{"reason"}, // in_flight, debounced
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordBackendRequest records one backend round trip. status is the HTTP
// status code, or 0 when no response was received.
func RecordBackendRequest(route string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(route, label).Inc()
	BackendDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordResolution records the outcome of one visualization resolution.
func RecordResolution(trigger, outcome string, duration time.Duration) {
	Resolutions.WithLabelValues(trigger, outcome).Inc()
	ResolutionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordCacheLookup counts a hit or miss for cacheType.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
