package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomePassed   = "passed"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics holds the Prometheus collectors for the validation pipeline.
type Metrics struct {
	Validations *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_validations_total",
			Help: "Completed validations by kind and outcome",
		}, []string{"kind", "outcome"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_validation_rejections_total",
			Help: "Uploads rejected before a verdict, by reason",
		}, []string{"reason"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photo_validation_duration_seconds",
			Help:    "Time spent decoding and scanning an upload",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"kind"}),
	}
}

// ObserveResult records a completed validation.
func (m *Metrics) ObserveResult(kind string, passed bool, elapsed time.Duration) {
	outcome := OutcomeFailed
	if passed {
		outcome = OutcomePassed
	}
	m.Validations.WithLabelValues(kind, outcome).Inc()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRejection records an upload that produced an error instead of a verdict.
func (m *Metrics) ObserveRejection(kind, reason string, elapsed time.Duration) {
	m.Validations.WithLabelValues(kind, OutcomeRejected).Inc()
	m.Rejections.WithLabelValues(reason).Inc()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
