// Package metrics exposes monitor activity as Prometheus metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigreplay/host/monitor"
)

const namespace = "sigreplay"

// Metrics holds the monitor's collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	passes       prometheus.Counter
	samples      prometheus.Counter
	passDuration prometheus.Histogram
	transitions  *prometheus.CounterVec
	malformed    prometheus.GaugeFunc
}

// New registers the collectors. malformed may be nil.
func New(malformed func() int) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_passes_total",
			Help:      "Replay passes received from the device.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_samples_total",
			Help:      "Replayed samples reported by the device.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_pass_duration_seconds",
			Help:      "Sum of sample intervals per replay pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "State transitions observed on the device.",
		}, []string{"from", "to"}),
	}
	m.Registry.MustRegister(m.passes, m.samples, m.passDuration, m.transitions)

	if malformed != nil {
		m.malformed = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "malformed_lines",
			Help:      "Stream lines with a known prefix that failed to parse.",
		}, func() float64 { return float64(malformed()) })
		m.Registry.MustRegister(m.malformed)
	}
	return m
}

// ObservePass records a completed pass
func (m *Metrics) ObservePass(p monitor.Pass) {
	m.passes.Inc()
	m.samples.Add(float64(len(p.Samples)))
	m.passDuration.Observe(float64(p.Duration()) / 1e6)
}

// ObserveState records a state transition
func (m *Metrics) ObserveState(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
