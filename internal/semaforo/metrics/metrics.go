package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides observability for the status engine's cache writer.
type Metrics struct {
	RefreshTotal        *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	StatusTransitions   *prometheus.CounterVec
	CategoryEvaluations *prometheus.CounterVec
}

// New registers the engine metrics with reg. A nil reg registers with the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semaforo_refresh_total",
			Help: "Cache refreshes by outcome",
		}, []string{"outcome"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "semaforo_refresh_duration_seconds",
			Help:    "Duration of recompute and persist cycles",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semaforo_status_transitions_total",
			Help: "Overall status changes written to the cache",
		}, []string{"from", "to"}),
		CategoryEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semaforo_category_evaluations_total",
			Help: "Per-category statuses produced by refreshes",
		}, []string{"category", "status"}),
	}
}

// ObserveRefresh records the outcome and duration of one refresh.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRefresh(outcome string, start time.Time) {
	m.RefreshTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementCategoryEvaluation(category, status string) {
	m.CategoryEvaluations.WithLabelValues(category, status).Inc()
}
