package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlannerRuns counts planning runs by terminal outcome.
	PlannerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_runs_total", Help: "Planning runs by outcome."},
		[]string{"outcome"},
	)
	PlannerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_rejections_total", Help: "Proposed assignments dropped by validation, by reason."},
		[]string{"reason"},
	)
	PlannerDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "planner_duplicates_total", Help: "Proposed assignments dropped as duplicates of an earlier ticket entry."},
	)
	PlannerApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_applied_total", Help: "Assignments committed to the ticket source, by status."},
		[]string{"status"},
	)
	// SolverSeconds tracks the latency of the single solver call per run.
	SolverSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "planner_solver_seconds", Help: "Solver completion latency in seconds.", Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 180, 300}},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry, once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(PlannerRuns, PlannerRejections, PlannerDuplicates, PlannerApplied, SolverSeconds)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
