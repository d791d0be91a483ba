package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_alerts"

// Metrics holds the Prometheus collectors for the poll cycle.
type Metrics struct {
	Polls         *prometheus.CounterVec // labels: outcome={ok,fetch_error}
	CurrentAQI    prometheus.Gauge
	CurrentRank   prometheus.Gauge
	AlertDecision *prometheus.CounterVec // labels: decision={dispatch,suppress,render_error}
	Dispatches    *prometheus.CounterVec // labels: outcome={success,error}
	FeedDecision  *prometheus.CounterVec // labels: decision={regenerate,skip,render_error}
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Polls,
		m.CurrentAQI,
		m.CurrentRank,
		m.AlertDecision,
		m.Dispatches,
		m.FeedDecision,
		m.CycleDuration,
	)
	return m
}

// NewMetricsForTesting returns unregistered collectors so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		CurrentAQI: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_aqi",
			Help:      "Most recent AQI reading.",
		}),
		CurrentRank: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_tier_rank",
			Help:      "Severity tier rank of the most recent reading.",
		}),
		AlertDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_decisions_total",
			Help:      "Alert throttle decisions.",
		}, []string{"decision"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Alert deliveries by outcome.",
		}, []string{"outcome"}),
		FeedDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_decisions_total",
			Help:      "Feed throttle decisions.",
		}, []string{"decision"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a poll cycle, excluding asynchronous delivery.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
