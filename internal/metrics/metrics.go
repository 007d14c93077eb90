// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineQuestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognify_pipeline_questions_total",
			Help: "Questions delivered by the sourcing pipeline",
		},
		[]string{"tier"}, // cache/semantic/ingestion/generative
	)

	PipelineExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cognify_pipeline_exhausted_total",
			Help: "Pipeline runs that produced no question",
		},
	)

	TierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognify_pipeline_tier_failures_total",
			Help: "Sourcing tier calls that failed and were skipped",
		},
		[]string{"tier"},
	)

	Remediation = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognify_remediation_total",
			Help: "Remediation outcomes",
		},
		[]string{"outcome"}, // triggered/timeout/failed
	)

	ExternalCall = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cognify_external_call_seconds",
			Help:    "Latency of calls to external collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	RefillRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cognify_refill_runs_total",
			Help: "Question bank refill runs",
		},
		[]string{"trigger"}, // low_stock/scheduled/manual
	)
)

// ObserveSince records the latency of op since start.
func ObserveSince(op string, start time.Time) {
	ExternalCall.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
