package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks        *prometheus.CounterVec
	BlocksCreated prometheus.Counter
	Fallbacks     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "newswire_ratelimit_checks_total",
			Help: "Total rate limit checks by category and outcome",
		}, []string{"category", "outcome"}),
		BlocksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newswire_ratelimit_blocks_created_total",
			Help: "Total punitive block entries created for sustained abuse",
		}),
		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newswire_ratelimit_fallbacks_total",
			Help: "Total checks that failed open because the store was unavailable",
		}),
	}
}

func (m *Metrics) RecordCheck(category, outcome string) {
	m.Checks.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) RecordBlockCreated() {
	m.BlocksCreated.Inc()
}

func (m *Metrics) RecordFallback() {
	m.Fallbacks.Inc()
}
