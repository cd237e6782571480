// Package metrics provides Prometheus metrics for the xbrush service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompressTotal counts compress operations.
	CompressTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbrush",
			Name:      "compress_total",
			Help:      "Total number of image compress operations",
		},
		[]string{"preset", "format", "status"},
	)

	// CompressDuration measures compress duration from read to encode.
	CompressDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xbrush",
			Name:      "compress_duration_seconds",
			Help:      "Duration of image compress operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"preset"},
	)

	// CompressedBytes observes estimated output sizes.
	CompressedBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xbrush",
			Name:      "compressed_bytes",
			Help:      "Estimated size of compressed images in bytes",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 10),
		},
		[]string{"format"},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbrush",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// NotificationsTotal counts relayed notifications.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xbrush",
			Name:      "notifications_total",
			Help:      "Total number of relayed notifications",
		},
		[]string{"source", "status"},
	)
)

// RecordCompress records a finished compress operation.
func RecordCompress(preset, format, status string, duration float64, size int64) {
	CompressTotal.WithLabelValues(preset, format, status).Inc()
	CompressDuration.WithLabelValues(preset).Observe(duration)
	if status == "ok" {
		CompressedBytes.WithLabelValues(format).Observe(float64(size))
	}
}

// RecordRequest records a served HTTP request.
func RecordRequest(method, route, status string) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordNotification records a relay attempt.
func RecordNotification(source, status string) {
	NotificationsTotal.WithLabelValues(source, status).Inc()
}
