package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jahiz_dispatch_total",
			Help: "Error reports processed, by outcome and severity.",
		},
		[]string{"outcome", "severity"},
	)
	deliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jahiz_delivery_failures_total",
			Help: "Failed deliveries by failure kind.",
		},
		[]string{"kind"},
	)
	rateLimitKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jahiz_rate_limit_keys",
			Help: "Number of grouping keys tracked by the rate limiter.",
		},
	)
)
