// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus instrumentation for the check-in API. All
// series live under the "gym" namespace so dashboards can separate this
// service from anything else scraped by the same Prometheus. HTTP series are
// labeled by method, registered route, and status; the route label comes from
// c.FullPath() (e.g. /api/v1/gyms/:gymId/check-ins) so gym and check-in IDs
// never explode label cardinality.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gym"

var (
	// requestCount counts finished requests by method, route, and status.
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled by the check-in API.",
		},
		[]string{"method", "route", "status"},
	)

	// requestDuration records handler latency. The API is a thin rule engine
	// over SQLite, so the buckets top out early rather than following
	// prometheus.DefBuckets into multi-second territory.
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// requestsInFlight gauges requests currently inside a handler.
	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		},
	)

	// responseBytes records response sizes. Payloads here are small JSON
	// bodies; history and metrics pages are the only responses that grow,
	// so the buckets stop at 256 KiB.
	responseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response body size in bytes.",
			Buckets:   []float64{128, 256, 512, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10},
		},
		[]string{"method", "route"},
	)

	// checkInResults counts check-in lifecycle outcomes by operation
	// (create, validate) and result (the stable error code, or "ok").
	// Both label sets are small and fixed by the rule engine.
	checkInResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkins_total",
			Help:      "Check-in operations by outcome.",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	prometheus.MustRegister(requestCount, requestDuration, requestsInFlight, responseBytes, checkInResults)
}

// CountCheckIn records the outcome of a check-in create or validate call.
// Handlers pass the stable error code on failure and "ok" on success, which
// makes geofence rejections and duplicate days visible without log scraping.
func CountCheckIn(operation, result string) {
	checkInResults.WithLabelValues(operation, result).Inc()
}

// Metrics returns a Gin middleware that instruments every request.
//
// The route label prefers the registered pattern and falls back to the raw
// URL path when nothing matched (404s). Response size is skipped when the
// writer reports -1 (nothing written).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		requestCount.WithLabelValues(method, route, status).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			responseBytes.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
