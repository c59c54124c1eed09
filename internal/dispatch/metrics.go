package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_dispatch_attempts_total",
		Help: "Transport attempts made by the failover chain, by outcome.",
	}, []string{"transport", "outcome"})

	dispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifier_dispatch_attempt_seconds",
		Help:    "Latency of individual transport attempts.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport"})
)
