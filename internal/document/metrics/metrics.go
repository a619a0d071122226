package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document module.
type Metrics struct {
	Uploads prometheus.Counter
	Reuses  prometheus.Counter
	Skips   prometheus.Counter
	Reviews *prometheus.CounterVec
}

// New creates a new Metrics instance with all document module metrics registered.
func New() *Metrics {
	return &Metrics{
		Uploads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_documents_uploaded_total",
			Help: "Total number of document files attached to a slot",
		}),
		Reuses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_documents_reused_total",
			Help: "Total number of document slots satisfied by reuse",
		}),
		Skips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credentia_documents_skipped_total",
			Help: "Total number of optional document slots skipped",
		}),
		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credentia_documents_reviewed_total",
			Help: "Total number of document review verdicts, by decision",
		}, []string{"decision"}),
	}
}

// IncrementUploaded records an upload.
func (m *Metrics) IncrementUploaded() {
	m.Uploads.Inc()
}

// IncrementReused records a reuse.
func (m *Metrics) IncrementReused() {
	m.Reuses.Inc()
}

// IncrementSkipped records a skip.
func (m *Metrics) IncrementSkipped() {
	m.Skips.Inc()
}

// IncrementReviewed records a review verdict by its decision.
func (m *Metrics) IncrementReviewed(decision string) {
	m.Reviews.WithLabelValues(decision).Inc()
}
