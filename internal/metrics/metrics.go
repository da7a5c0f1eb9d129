package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "converter"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	lastUpdate    prometheus.Gauge
	staleTotal    prometheus.Counter
	conversions   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rates_fetch_total",
			Help:      "Rate table fetches by result.",
		}, []string{"result"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rates_fetch_duration_seconds",
			Help:      "Duration of rate table fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastUpdate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rates_last_update_timestamp_seconds",
			Help:      "Unix time of the last applied rate table.",
		}),
		staleTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rates_stale_responses_total",
			Help:      "Fetch results discarded because a newer result was already applied.",
		}),
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversions computed by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) FetchSucceeded(took time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues("success").Inc()
	m.fetchDuration.Observe(took.Seconds())
	m.lastUpdate.Set(float64(at.Unix()))
}

func (m *Metrics) FetchFailed(took time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues("failure").Inc()
	m.fetchDuration.Observe(took.Seconds())
}

func (m *Metrics) StaleResponse() {
	if m == nil {
		return
	}
	m.staleTotal.Inc()
}

func (m *Metrics) Conversion(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "placeholder"
	}
	m.conversions.WithLabelValues(result).Inc()
}
