// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the audit engine:
// - Write path (logged, sampled out, bulk rejects)
// - Query latency
// - Retention and backfill progress
// - Aggregate index sizes
// - HTTP endpoint latency and throughput

var (
	// Write Path Metrics
	EventsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_logged_total",
			Help: "Total number of audit events accepted and stored",
		},
		[]string{"severity"},
	)

	EventsSampledOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_sampled_out_total",
			Help: "Total number of events dropped by the sampling policy",
		},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_rejected_total",
			Help: "Total number of events rejected by validation",
		},
		[]string{"field"},
	)

	// Query Metrics
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_search_duration_seconds",
			Help:    "Duration of filtered searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Detection Metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_anomalies_detected_total",
			Help: "Total number of anomaly patterns that exceeded their threshold",
		},
		[]string{"action"},
	)

	// Retention Metrics
	EventsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_deleted_total",
			Help: "Total number of events removed by retention cleanup",
		},
	)

	RetentionSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_retention_sweeps_total",
			Help: "Total number of retention sweep passes completed",
		},
	)

	// Backfill Metrics
	BackfillProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_backfill_events_processed_total",
			Help: "Total number of events examined by aggregate backfill",
		},
	)

	BackfillRepaired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_backfill_entries_repaired_total",
			Help: "Total number of missing aggregate entries restored by backfill",
		},
	)

	// Aggregate Index Metrics
	AggregateIndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audit_aggregate_index_entries",
			Help: "Current number of entries per aggregate index dimension",
		},
		[]string{"dimension"},
	)

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// RecordSearch records the latency of one filtered search.
func RecordSearch(duration time.Duration) {
	SearchDuration.Observe(duration.Seconds())
}
