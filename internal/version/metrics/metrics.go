package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the version module.
// Tracks staged/applied/rejected counts and apply-path latency, since apply
// holds a compare-and-swap on the live professional record.
type Metrics struct {
	VersionsStaged   *prometheus.CounterVec
	VersionsApplied  prometheus.Counter
	VersionsRejected prometheus.Counter
	ApplyConflicts   prometheus.Counter
	ApplyDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all version module metrics registered.
func New() *Metrics {
	return &Metrics{
		VersionsStaged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentia_versions_staged_total",
			Help: "Total number of professional versions staged, by source type",
		}, []string{"source_type"}),
		VersionsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_versions_applied_total",
			Help: "Total number of professional versions applied",
		}),
		VersionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_versions_rejected_total",
			Help: "Total number of professional versions rejected",
		}),
		ApplyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_version_apply_conflicts_total",
			Help: "Total number of version applies lost to a concurrent writer",
		}),
		ApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credentia_version_apply_duration_seconds",
			Help:    "Duration of version apply operations (snapshot converge path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementStaged records a staged version by its source type.
func (m *Metrics) IncrementStaged(sourceType string) {
	m.VersionsStaged.WithLabelValues(sourceType).Inc()
}

// IncrementApplied records a successful apply.
func (m *Metrics) IncrementApplied() {
	m.VersionsApplied.Inc()
}

// IncrementRejected records a rejected version.
func (m *Metrics) IncrementRejected() {
	m.VersionsRejected.Inc()
}

// IncrementApplyConflict records an apply that lost the record-version race.
func (m *Metrics) IncrementApplyConflict() {
	m.ApplyConflicts.Inc()
}

// ObserveApply records the duration of an Apply operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveApply(start time.Time) {
	m.ApplyDuration.Observe(time.Since(start).Seconds())
}
