// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the companion server's
// own HTTP traffic (backend calls are measured by the api package). Labels
// are kept bounded:
//
//   - method: HTTP verb
//   - path:   the registered Gin route, or "unmatched" for 404s
//   - status: numeric status code as a string
//
// Long-lived routes such as the websocket event stream are excluded from the
// latency and size histograms and tracked by connection count instead.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_ui_http_requests_total",
			Help: "Total number of companion HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_ui_http_request_duration_seconds",
			Help:    "Duration of companion HTTP requests in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_ui_http_requests_inflight",
			Help: "Current number of in-flight companion HTTP requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "docchat_ui_http_response_size_bytes",
			Help: "Size of companion HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)

	streamConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docchat_ui_stream_connections",
			Help: "Currently open long-lived connections (event stream).",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, streamConns)
}

// Metrics returns a middleware recording request counts, latency, in-flight
// concurrency and response size. Requests whose route is listed in streams
// are only counted and tracked as open connections.
//
//	r.Use(middleware.Metrics("/ui/v1/events"))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics(streams ...string) gin.HandlerFunc {
	stream := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		stream[s] = struct{}{}
	}
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		if _, ok := stream[path]; ok {
			streamConns.Inc()
			defer streamConns.Dec()
			c.Next()
			httpReqs.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
			return
		}

		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		method := c.Request.Method
		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
