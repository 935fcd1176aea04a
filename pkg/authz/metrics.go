package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hmis",
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "Authorization decisions by object, mode and outcome.",
	}, []string{"object", "mode", "outcome"})

	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hmis",
		Subsystem: "authz",
		Name:      "check_duration_seconds",
		Help:      "Time spent evaluating policies for one request.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 6),
	})
)

func observe(req Request, mode Mode, allowed bool, took time.Duration) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	decisions.WithLabelValues(req.Object, string(mode), outcome).Inc()
	checkDuration.Observe(took.Seconds())
}
