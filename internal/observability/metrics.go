package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qrlink_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	QRRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_qr_renders_total",
			Help: "QR images rendered, by outcome",
		},
		[]string{"outcome"},
	)

	PublicResolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrlink_public_resolves_total",
			Help: "Public profile lookups, by result",
		},
		[]string{"result"},
	)
)
