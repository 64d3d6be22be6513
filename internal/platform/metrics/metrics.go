// Package metrics exposes Prometheus collectors for the HTTP edge and caches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"cache", "status"},
	)

	IdempotencyKeysPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_idempotency_keys_purged_total",
			Help: "Expired checkout idempotency keys deleted",
		},
	)
	IdempotencyPurgeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_idempotency_purge_errors_total",
			Help: "Failed idempotency purge batches",
		},
	)
)

// Cache outcomes recorded in CacheOperations.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Middleware records request counts, latency, and in-flight requests per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCache increments the cache outcome counter.
func RecordCache(cache, status string) {
	CacheOperations.WithLabelValues(cache, status).Inc()
}
