package telegram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jahiz_telegram_requests_total",
			Help: "Telegram Bot API calls by method and result.",
		},
		[]string{"method", "result"},
	)
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jahiz_telegram_request_duration_seconds",
			Help:    "Duration of Telegram Bot API calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method"},
	)
)
