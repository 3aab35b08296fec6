package indicators

import "github.com/prometheus/client_golang/prometheus"

func FetchCounter(c *Collector, accessor, outcome string) prometheus.Collector {
	return c.fetches.WithLabelValues(accessor, outcome)
}
