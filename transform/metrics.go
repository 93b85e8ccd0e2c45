package transform

import (
	"strings"
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"

	errs "github.com/c360studio/semequip/errors"
)

// Metrics holds Prometheus metrics for transforms. A nil *Metrics records
// nothing.
type Metrics struct {
	transforms *prometheus.CounterVec   // by outcome
	properties *prometheus.CounterVec   // by result: mapped, skipped
	duration   *prometheus.HistogramVec // by outcome
}

func newMetrics() *Metrics {
	return &Metrics{
		transforms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semequip",
			Name:      "transforms_total",
			Help:      "Total number of equipment transforms by outcome",
		}, []string{"outcome"}), // outcome: success, or the error kind

		properties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semequip",
			Name:      "properties_total",
			Help:      "Equipment properties seen by transforms",
		}, []string{"result"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semequip",
			Name:      "transform_duration_seconds",
			Help:      "Equipment transform duration in seconds, including shape retrieval",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"outcome"}),
	}
}

// NewMetrics creates transform metrics and registers them with a semstreams
// registry. A nil registry disables metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := newMetrics()
	if err := registry.RegisterCounterVec("semequip", "transforms_total", m.transforms); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("semequip", "properties_total", m.properties); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("semequip", "transform_duration", m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsWith creates transform metrics registered on reg.
func NewMetricsWith(reg prometheus.Registerer) (*Metrics, error) {
	m := newMetrics()
	for _, c := range []prometheus.Collector{m.transforms, m.properties, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) record(err error, elapsed time.Duration, mapped, skipped int) {
	if m == nil {
		return
	}

	outcome := Outcome(err)
	m.transforms.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if mapped > 0 {
		m.properties.WithLabelValues("mapped").Add(float64(mapped))
	}
	if skipped > 0 {
		m.properties.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// Outcome returns the metric label for a transform result: "success", the
// snake_cased error kind, or "error" for unclassified failures.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	kind := errs.KindOf(err)
	if kind == 0 {
		return "error"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}
