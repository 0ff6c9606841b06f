// Package metrics exposes pipeline counters in the prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kxddry/hr-rag/internal/domain"
)

const namespace = "hrrag"

// Recorder records pipeline events. A nil Recorder records nothing.
type Recorder struct {
	classifications *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	citations       *prometheus.CounterVec
}

// New registers the collectors into reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Requests by classification method and terminal path.",
		}, []string{"method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by answer mode.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		citations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_total",
			Help:      "Attribution outcomes of generated answers.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{r.classifications, r.latency, r.citations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Classified counts one routed request.
func (r *Recorder) Classified(method domain.Method, path domain.Path) {
	if r == nil {
		return
	}
	r.classifications.WithLabelValues(string(method), string(path)).Inc()
}

// Observe records the latency of a request answered in mode.
func (r *Recorder) Observe(mode string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Cited counts an attribution that selected a reference or suppressed it.
func (r *Recorder) Cited(selected bool) {
	if r == nil {
		return
	}
	outcome := "suppressed"
	if selected {
		outcome = "selected"
	}
	r.citations.WithLabelValues(outcome).Inc()
}

// Handler serves the gathered metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
