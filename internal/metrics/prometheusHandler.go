package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var documentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Documents processed by the ingestion pipeline, labelled by outcome",
}, []string{"outcome"})

var indexMergeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "index_merge_failures_total",
	Help: "Per-document indexes excluded from a category merge",
}, []string{"stage"})

var evidenceItems = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "evidence_items",
	Help:    "Evidence items handed to the answer composer per question",
	Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 10},
})

var askDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ask_duration_seconds",
	Help:    "Total time spent answering a question.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"mode", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls and pipeline steps.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

var activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ingest_workers_active",
	Help: "Ingestion workers currently running",
})

// HttpStatusRecorder remembers the status code written by the wrapped handler.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureAskMetrics(mode, status string, timeElapsed time.Duration) {
	askDuration.WithLabelValues(mode, status).Observe(timeElapsed.Seconds())
}

func RecordIngestion(outcome string) {
	documentsIngested.WithLabelValues(outcome).Inc()
}

func RecordMergeFailure(stage string) {
	indexMergeFailures.WithLabelValues(stage).Inc()
}

func ObserveEvidence(count int) {
	evidenceItems.Observe(float64(count))
}

func IncrementActiveWorkerCount() {
	activeWorkers.Inc()
}

func DecrementActiveWorkerCount() {
	activeWorkers.Dec()
}
