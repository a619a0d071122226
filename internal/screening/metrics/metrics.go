package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module. Process outcomes
// are labelled by terminal status; step completions carry the step type so
// slow steps stand out.
type Metrics struct {
	ProcessesCreated  prometheus.Counter
	ProcessesFinished *prometheus.CounterVec
	StepsCompleted    *prometheus.CounterVec
	StepLockConflicts prometheus.Counter
	AlertsRaised      prometheus.Counter
	CompleteDuration  *prometheus.HistogramVec
}

// New creates a new Metrics instance with all screening module metrics registered.
func New() *Metrics {
	return &Metrics{
		ProcessesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_screening_processes_created_total",
			Help: "Total number of screening processes created",
		}),
		ProcessesFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentia_screening_processes_finished_total",
			Help: "Total number of screening processes reaching a terminal status",
		}, []string{"status"}),
		StepsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentia_screening_steps_completed_total",
			Help: "Total number of screening steps completed, by step type",
		}, []string{"step_type"}),
		StepLockConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_screening_step_lock_conflicts_total",
			Help: "Total number of step completions lost to a stale lock token",
		}),
		AlertsRaised: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_screening_alerts_raised_total",
			Help: "Total number of review alerts raised on screening processes",
		}),
		CompleteDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credentia_screening_step_complete_duration_seconds",
			Help:    "Duration of step completion operations, by step type",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"step_type"}),
	}
}

// IncrementCreated records a newly created process.
func (m *Metrics) IncrementCreated() {
	m.ProcessesCreated.Inc()
}

// IncrementFinished records a process reaching the given terminal status.
func (m *Metrics) IncrementFinished(status string) {
	m.ProcessesFinished.WithLabelValues(status).Inc()
}

// IncrementStepCompleted records a completed step by its type.
func (m *Metrics) IncrementStepCompleted(stepType string) {
	m.StepsCompleted.WithLabelValues(stepType).Inc()
}

// IncrementLockConflict records a step completion rejected for a stale token.
func (m *Metrics) IncrementLockConflict() {
	m.StepLockConflicts.Inc()
}

// IncrementAlertRaised records a raised review alert.
func (m *Metrics) IncrementAlertRaised() {
	m.AlertsRaised.Inc()
}

// ObserveComplete records the duration of a step completion.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveComplete(stepType string, start time.Time) {
	m.CompleteDuration.WithLabelValues(stepType).Observe(time.Since(start).Seconds())
}
