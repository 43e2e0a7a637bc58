// Package metrics defines the Prometheus collectors shared across the HTTP
// surface, the orchestrator, and the load generator, following the
// teacher's own ledger_http_* naming and promauto registration pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal mirrors the teacher's ledger_http_requests_total.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by method, endpoint and HTTP status text",
	}, []string{"method", "endpoint", "status"})

	// HTTPRequestDuration mirrors the teacher's ledger_http_request_duration_seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	// OrchestratorStepsTotal counts each protocol step outcome, the
	// operational surface spec.md §9's open issue 1 asks an on-call to watch.
	OrchestratorStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_orchestrator_steps_total",
		Help: "Transfer protocol steps, labeled by step name and terminal status",
	}, []string{"step", "status"})

	// OrchestratorTransfersTotal counts completed transfers by outcome.
	OrchestratorTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_orchestrator_transfers_total",
		Help: "Completed transfers, labeled by outcome",
	}, []string{"outcome"})

	// GeneratorInFlight tracks the load generator's current in-flight count.
	GeneratorInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_rdg_in_flight",
		Help: "Requests currently in flight in the load generator",
	})

	// GeneratorSentTotal counts transfer requests the generator has launched.
	GeneratorSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_rdg_sent_total",
		Help: "Total transfer requests launched by the load generator",
	})
)
