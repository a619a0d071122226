package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-wide HTTP metrics. Feature packages register their own
// domain metrics separately.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credentia_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
