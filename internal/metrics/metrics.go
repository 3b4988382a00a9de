// Package metrics defines the Prometheus collectors exported by sithlist.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sithlist"

// Metrics groups every collector. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	FetchTotal       *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	PrefetchOutcomes *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	PushMessages     *prometheus.CounterVec
	PushConnected    prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_fetches_total",
			Help:      "Record fetches by result (ok, error, cache_hit).",
		}, []string{"result"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_fetch_duration_seconds",
			Help:      "Latency of record fetches against the records API.",
			Buckets:   prometheus.DefBuckets,
		}),
		PrefetchOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_steps_total",
			Help:      "Prefetch queue drain steps by outcome.",
		}, []string{"outcome"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prefetch_queue_depth",
			Help:      "Number of pending prefetch requests.",
		}),
		PushMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_messages_total",
			Help:      "Push channel messages by result (ok, malformed).",
		}, []string{"result"}),
		PushConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is connected.",
		}),
	}
}

// ObserveFetch records one fetch and its latency.
func (m *Metrics) ObserveFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(result).Inc()
	if d > 0 {
		m.FetchDuration.Observe(d.Seconds())
	}
}

// ObservePrefetch records one drain step.
func (m *Metrics) ObservePrefetch(outcome string, depth int) {
	if m == nil {
		return
	}
	m.PrefetchOutcomes.WithLabelValues(outcome).Inc()
	m.QueueDepth.Set(float64(depth))
}

// SetQueueDepth records the current queue length.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// ObservePush records one push message.
func (m *Metrics) ObservePush(result string) {
	if m == nil {
		return
	}
	m.PushMessages.WithLabelValues(result).Inc()
}

// SetPushConnected records the push channel connection state.
func (m *Metrics) SetPushConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.PushConnected.Set(1)
	} else {
		m.PushConnected.Set(0)
	}
}
