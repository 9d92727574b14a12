package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout"

// Metrics groups the checkout collectors. A nil *Metrics is valid and records
// nothing, so callers never need to guard.
type Metrics struct {
	transitions      *prometheus.CounterVec
	commits          *prometheus.CounterVec
	commitDuration   prometheus.Histogram
	payments         *prometheus.CounterVec
	capturedUnbooked prometheus.Counter
	activeSessions   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Checkout state machine transitions by name and outcome",
			},
			[]string{"transition", "outcome"},
		),
		commits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Reservation commits by outcome",
			},
			[]string{"outcome"},
		),
		commitDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_duration_seconds",
				Help:      "Duration of the authoritative booking commit",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),
		payments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Payment submissions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		capturedUnbooked: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captured_unbooked_total",
				Help:      "Payments captured whose booking could not be written",
			},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Checkout sessions currently held in memory",
			},
		),
	}
}

func (m *Metrics) Transition(name, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) Commit(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
	m.commitDuration.Observe(took.Seconds())
}

func (m *Metrics) Payment(provider, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) CapturedUnbooked() {
	if m == nil {
		return
	}
	m.capturedUnbooked.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
