package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BatchesProcessed prometheus.Counter
	ItemsProcessed   prometheus.Counter
	Sends            *prometheus.CounterVec
	BatchDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		BatchesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newswire_broadcast_batches_total",
			Help: "Total broadcast batches processed",
		}),
		ItemsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newswire_broadcast_items_total",
			Help: "Total news items processed by the broadcast coordinator",
		}),
		Sends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "newswire_broadcast_sends_total",
			Help: "Per-channel send outcomes",
		}, []string{"channel", "outcome"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "newswire_broadcast_batch_duration_seconds",
			Help:    "Wall time of one ProcessAndBroadcast invocation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordBatch(items int, took time.Duration) {
	m.BatchesProcessed.Inc()
	m.ItemsProcessed.Add(float64(items))
	m.BatchDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordSend(channel string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Sends.WithLabelValues(channel, outcome).Inc()
}
