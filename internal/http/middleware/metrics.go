// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels stay
// bounded: the route template (not the raw URL, so /personal-best/:name does
// not explode per player), the method and the status code.
//
// Long-lived event streams are counted but kept out of the latency and size
// histograms; their duration is the session length, not a response time.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Leaderboard payloads are small; buckets stop at 256KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				100, 250, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 64 << 10, 256 << 10,
			},
		},
		[]string{"method", "path"},
	)

	// edgeRejections counts requests turned away by middleware
	// (unauthorized, forbidden, rate_limited).
	edgeRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_edge_rejections_total",
			Help: "Requests rejected by middleware before reaching a handler.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, edgeRejections)
}

// Metrics instruments requests:
//   - http_requests_total{method,path,status}
//   - http_request_duration_seconds{method,path}
//   - http_requests_inflight
//   - http_response_size_bytes{method,path}
//
// path is c.FullPath(), or the raw path when no route matched.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()

		if isStream(c) {
			return
		}
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

func isStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}
