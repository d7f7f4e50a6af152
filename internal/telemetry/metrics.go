// Package telemetry provides application-level observability for the portal back office.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and served on the
// side-channel HTTP server started by cmd/server:
//
//	GET http://<host>:<PORTAL_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Activity pipeline counters: records written, write failures, queue drops, unusual flags
//   - Activity enrichment latency
//   - Database connection pool gauge (polled every 30 s)
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template and status code.
//
// The path label holds the Gin route template (e.g. /api/v1/circuits/:id), not the raw
// URL, so user-supplied path segments do not inflate label cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Activity pipeline metrics.
//
// ActivityRecordsWrittenTotal counts records persisted to user_activity_logs, by action.
// ActivityWriteFailuresTotal counts records that were lost because the store rejected them;
// the caller never sees these failures, so alert on this counter instead:
//
//	increase(activity_write_failures_total[15m]) > 0
//
// ActivityQueueDroppedTotal counts records discarded because the async write queue was full.
// ActivityUnusualTotal counts records flagged by the anomaly heuristic, by action.
var (
	ActivityRecordsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_records_written_total",
			Help: "Total number of activity records persisted, by action.",
		},
		[]string{"action"},
	)

	ActivityWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_write_failures_total",
			Help: "Total number of activity records that failed to persist.",
		},
	)

	ActivityQueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_queue_dropped_total",
			Help: "Total number of activity records dropped because the write queue was full.",
		},
	)

	ActivityUnusualTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_unusual_total",
			Help: "Total number of activity records flagged as unusual, by action.",
		},
		[]string{"action"},
	)

	ActivityEnrichDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activity_enrich_duration_seconds",
			Help:    "Time spent enriching an activity record before it is handed to the writer.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
	)
)

// ActivityShippedTotal counts records handed to external shippers, by shipper type and
// result (ok or error).
var ActivityShippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "activity_shipped_total",
		Help: "Total number of activity records forwarded to external shippers, by shipper and result.",
	},
	[]string{"shipper", "result"},
)

// ActivityQueueDepth reports how many records are waiting in the async write queue.
var ActivityQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "activity_queue_depth",
		Help: "Current number of activity records waiting in the async write queue.",
	},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB pool
// statistics every 30 seconds. It exits when the database becomes unreachable, which
// happens when the application shuts down and closes the pool.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
