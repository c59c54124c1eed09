package reminder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_reminders_fired_total",
		Help: "Reminders the engine decided to send, by window and outcome.",
	}, []string{"window", "outcome"})

	recordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_records_dropped_total",
		Help: "Deadline records dropped for failing validation.",
	})
)
