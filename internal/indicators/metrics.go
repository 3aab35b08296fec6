package indicators

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "kardashev"

// Outcome labels for fetch metrics.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
)

// Collector is a prometheus.Collector reporting how each accessor fared.
type Collector struct {
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	observationSize *prometheus.GaugeVec
}

func NewMetricsCollector() *Collector {
	return &Collector{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "indicator_fetch_total",
				Help:      "The number of indicator fetches by accessor and outcome.",
			}, []string{"accessor", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "indicator_fetch_seconds",
				Help:      "The time taken by one accessor, upstream request included.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			}, []string{"accessor"},
		),
		observationSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "indicator_observations",
				Help:      "The number of observations returned by the last fetch.",
			}, []string{"accessor"},
		),
	}
}

func (c *Collector) observe(accessor, outcome string, seconds float64, size int) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(accessor, outcome).Inc()
	c.fetchDuration.WithLabelValues(accessor).Observe(seconds)
	c.observationSize.WithLabelValues(accessor).Set(float64(size))
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.fetches.Describe(ch)
	c.fetchDuration.Describe(ch)
	c.observationSize.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.fetches.Collect(ch)
	c.fetchDuration.Collect(ch)
	c.observationSize.Collect(ch)
}
