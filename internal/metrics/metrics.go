// Package metrics holds the Prometheus collectors shared by the pipeline,
// the sandbox and the web server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// runsTotal counts finished runs by status and reason.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdebug_runs_total",
		Help: "Total debugging runs by final status and reason",
	}, []string{"status", "reason"})

	attemptsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragdebug_attempts_per_run",
		Help:    "Attempts consumed per debugging run",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	nodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragdebug_node_duration_seconds",
		Help:    "Graph node execution time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
	}, []string{"node"})

	sandboxExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdebug_sandbox_executions_total",
		Help: "Sandbox executions by backend and outcome",
	}, []string{"backend", "outcome"})
)

// Sandbox outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeNonZero = "nonzero"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// ObserveRun records a finished run.
func ObserveRun(status, reason string, attempts int) {
	if reason == "" {
		reason = "none"
	}
	runsTotal.WithLabelValues(status, reason).Inc()
	attemptsPerRun.Observe(float64(attempts))
}

// ObserveNode records one node execution. Its signature matches
// graph.WithObserver.
func ObserveNode(node string, elapsed time.Duration) {
	nodeDuration.WithLabelValues(node).Observe(elapsed.Seconds())
}

// ObserveSandbox records one sandbox execution.
func ObserveSandbox(backend, outcome string) {
	sandboxExecutions.WithLabelValues(backend, outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
