package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoedit_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_webhook_deliveries_total",
		Help: "Webhook deliveries by outcome.",
	}, []string{"outcome"})
)
