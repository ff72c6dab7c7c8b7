package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// backendReqs counts backend calls by operation and outcome
	// (numeric status, or "error" when no answer was received).
	backendReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docchat_backend_requests_total",
			Help: "Total number of calls made to the document-chat backend.",
		},
		[]string{"op", "code"},
	)

	// backendLat records backend call duration in seconds by operation.
	backendLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docchat_backend_request_duration_seconds",
			Help:    "Duration of calls made to the document-chat backend.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(backendReqs, backendLat)
}

func observe(op string, status int, start time.Time) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	backendReqs.WithLabelValues(op, code).Inc()
	backendLat.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
