// Package metrics instruments the control plane with Prometheus metrics:
// per-handler request counts and latency histograms, plus cluster-level
// gauges and counters, exposed over promhttp at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "controlplane_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by handler/method/status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status"},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlplane_http_requests_total",
			Help: "Total HTTP requests, by handler/method/status.",
		},
		[]string{"handler", "method", "status"},
	)

	// NodesGauge reports the current node count.
	NodesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "controlplane_nodes",
		Help: "Current number of known nodes.",
	})

	// PodsGauge reports the current pod count.
	PodsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "controlplane_pods",
		Help: "Current number of known pods.",
	})

	// RescheduleTotal counts reschedule outcomes by result (placed/failed).
	RescheduleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlplane_reschedule_total",
			Help: "Pod reschedule attempts, by outcome.",
		},
		[]string{"outcome"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps h so every request is recorded under the given handler
// label: status code, count, and latency.
func Instrument(handler string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h(rec, r)

		status := strconv.Itoa(rec.status)
		requestDuration.WithLabelValues(handler, r.Method, status).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(handler, r.Method, status).Inc()
	}
}
