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

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of async generation requests waiting for a worker",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var completionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "loader_completion_attempts_total",
	Help: "Completion calls labelled by provider and outcome",
}, []string{"provider", "outcome"})

var jobOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "loader_job_outcomes_total",
	Help: "Finished standard-document jobs labelled by final status",
}, []string{"status"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureCompletionAttempt(provider string, outcome string) {
	completionAttempts.WithLabelValues(provider, outcome).Inc()
}

func CaptureJobOutcome(status string) {
	jobOutcomes.WithLabelValues(status).Inc()
}

var batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "loader_batch_duration_seconds",
	Help:    "Total time spent generating one batch.",
	Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of pipeline stages and external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	batchDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
