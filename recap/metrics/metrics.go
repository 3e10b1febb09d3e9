package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvocationAttempts counts every call made to the generation backend.
	InvocationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_recap_invocation_attempts_total",
			Help: "Total number of generation attempts",
		},
		[]string{"variant", "outcome"},
	)

	// InvocationFailures counts invocations that ended without a response.
	InvocationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_recap_invocation_failures_total",
			Help: "Total number of invocations that failed terminally",
		},
		[]string{"variant", "class"},
	)

	// RecoveryOutcomes tracks how model output was turned into a shaped result.
	RecoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_recap_recovery_outcomes_total",
			Help: "Shaped results by recovery path (strict, repaired, fallback)",
		},
		[]string{"contract", "outcome"},
	)

	// AnalysisLatency tracks end-to-end analysis time including retries.
	AnalysisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_recap_analysis_latency_seconds",
			Help:    "Analysis latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"variant"},
	)
)
