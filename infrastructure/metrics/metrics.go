// Package metrics holds the Prometheus collectors for publishing and
// scheduling. Labels are limited to platform, outcome and unit kind.
package metrics

import (
	"time"

	"repurposer/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_attempts_total",
			Help: "Publish attempts by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	publishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "Duration of publish attempts in seconds, adapter call included.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 60, 120},
		},
		[]string{"platform"},
	)

	sweepUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_sweep_units_total",
			Help: "Sweep units processed by kind (post, scheduled_post) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	recurrenceCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_recurrence_posts_created_total",
			Help: "Posts materialised from recurring templates.",
		},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refresh_total",
			Help: "OAuth token refreshes by platform and result.",
		},
		[]string{"platform", "result"},
	)
)

func init() {
	prometheus.MustRegister(publishAttempts, publishDuration, sweepUnits, recurrenceCreated, tokenRefreshes)
}

// ObservePublish records one attempt. Successful attempts use outcome
// "success"; failures use their error class.
func ObservePublish(p model.Platform, res model.PublishResult, took time.Duration) {
	outcome := "success"
	if !res.Success {
		outcome = string(res.ErrorClass)
		if outcome == "" {
			outcome = "unknown"
		}
	}
	publishAttempts.WithLabelValues(string(p), outcome).Inc()
	publishDuration.WithLabelValues(string(p)).Observe(took.Seconds())
}

func ObserveSweepUnit(kind, outcome string) {
	sweepUnits.WithLabelValues(kind, outcome).Inc()
}

func AddRecurrenceCreated(n int) {
	recurrenceCreated.Add(float64(n))
}

func ObserveTokenRefresh(p model.Platform, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	tokenRefreshes.WithLabelValues(string(p), result).Inc()
}
