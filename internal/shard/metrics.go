package shard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts settled outcomes and times whole fan-outs. A nil *Metrics
// records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	fanout   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kontribute",
			Subsystem: "shard",
			Name:      "outcomes_total",
			Help:      "Settled endpoint outcomes by status.",
		}, []string{"status"}),
		fanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kontribute",
			Subsystem: "shard",
			Name:      "fanout_seconds",
			Help:      "Time to settle every endpoint of one partition query.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.fanout)
	}
	return m
}

func (m *Metrics) observe(statuses []string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fanout.Observe(elapsed.Seconds())
	for _, st := range statuses {
		m.outcomes.WithLabelValues(st).Inc()
	}
}
