package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metrics (registered once)
var (
	metricsOnce sync.Once

	debatesStartedTotal   prometheus.Counter
	debatesCompletedTotal *prometheus.CounterVec
	debatesActiveGauge    prometheus.Gauge
	turnsTotal            *prometheus.CounterVec
	turnRetriesTotal      prometheus.Counter
	turnDurationSeconds   *prometheus.HistogramVec
	eventsPublishedTotal  *prometheus.CounterVec
	eventsDroppedTotal    prometheus.Counter
	subscribersGauge      prometheus.Gauge
)

func initMetrics() {
	metricsOnce.Do(func() {
		debatesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "debatearena_debates_started_total",
			Help: "Number of debates started",
		})

		debatesCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_debates_completed_total",
				Help: "Number of debates completed, by winning stance",
			},
			[]string{"winner"},
		)

		debatesActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "debatearena_debates_active",
			Help: "Number of debates currently running",
		})

		turnsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_turns_total",
				Help: "Number of debate turns, by outcome",
			},
			[]string{"outcome"},
		)

		turnRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "debatearena_turn_retries_total",
			Help: "Number of turn generation retries",
		})

		turnDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "debatearena_turn_duration_seconds",
				Help:    "Wall-clock duration of debate turns",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"role"},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_events_published_total",
				Help: "Number of events published to session broadcasters, by type",
			},
			[]string{"type"},
		)

		eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "debatearena_events_dropped_total",
			Help: "Number of events dropped because a subscriber missed its delivery deadline",
		})

		subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "debatearena_subscribers_active",
			Help: "Number of active event subscribers across all sessions",
		})
	})
}

// DebateStarted records a new running debate.
func DebateStarted() {
	initMetrics()
	debatesStartedTotal.Inc()
	debatesActiveGauge.Inc()
}

// DebateCompleted records a finished debate and its winner.
func DebateCompleted(winner string) {
	initMetrics()
	debatesCompletedTotal.WithLabelValues(winner).Inc()
	debatesActiveGauge.Dec()
}

// TurnCompleted records one turn with its outcome ("ok" or "fallback") and
// duration, labeled by the speaking role.
func TurnCompleted(role, outcome string, duration time.Duration) {
	initMetrics()
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDurationSeconds.WithLabelValues(role).Observe(duration.Seconds())
}

// TurnRetried records one generation retry.
func TurnRetried() {
	initMetrics()
	turnRetriesTotal.Inc()
}

// EventPublished records one broadcast event.
func EventPublished(eventType string) {
	initMetrics()
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// EventDropped records a delivery that missed its deadline.
func EventDropped() {
	initMetrics()
	eventsDroppedTotal.Inc()
}

// SubscriberAdded tracks a new subscriber.
func SubscriberAdded() {
	initMetrics()
	subscribersGauge.Inc()
}

// SubscriberRemoved tracks a departed subscriber.
func SubscriberRemoved() {
	initMetrics()
	subscribersGauge.Dec()
}
