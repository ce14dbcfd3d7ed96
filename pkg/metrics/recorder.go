// Package metrics exposes live Prometheus counters/histograms for review
// throughput and grounding quality, plus a per-batch agreement report
// computed on demand from the review/audit tables for the review UI's
// metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder wraps the Prometheus instruments this package registers. A
// single Recorder is shared process-wide; pkg/review and pkg/pipeline
// call its Observe* methods as review actions land and pipeline nodes
// complete.
type Recorder struct {
	reviewActionsTotal    *prometheus.CounterVec
	groundingConfidence   *prometheus.HistogramVec
	pipelineNodeDuration  *prometheus.HistogramVec
	pipelineNodeFailures  *prometheus.CounterVec
}

// NewRecorder registers every instrument against registry and returns the
// wrapper. Passing a fresh prometheus.NewRegistry() (rather than the
// global DefaultRegisterer) keeps test instantiation free of
// already-registered-collector panics across package tests.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	factory := promauto.With(registry)

	return &Recorder{
		reviewActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "elixirtrials_review_actions_total",
			Help: "Count of committed review actions by target type and action.",
		}, []string{"target_type", "action"}),

		groundingConfidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elixirtrials_grounding_confidence",
			Help:    "Grounding confidence score recorded per entity at persist time.",
			Buckets: []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1.0},
		}, []string{"grounding_method"}),

		pipelineNodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elixirtrials_pipeline_node_duration_seconds",
			Help:    "Wall-clock duration of one pipeline node execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node"}),

		pipelineNodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "elixirtrials_pipeline_node_failures_total",
			Help: "Count of pipeline node executions that returned an error.",
		}, []string{"node"}),
	}
}

// ObserveReviewAction records one committed review action. No-op counts
// (see pkg/review's idempotent approve/reject) are not observed here —
// callers should only call this after a real Review row was written.
func (r *Recorder) ObserveReviewAction(targetType, action string) {
	r.reviewActionsTotal.WithLabelValues(targetType, action).Inc()
}

// ObserveGroundingConfidence records one entity's grounding confidence,
// labeled by how it was grounded (exact/search/agentic/expert_review).
func (r *Recorder) ObserveGroundingConfidence(groundingMethod string, confidence float64) {
	r.groundingConfidence.WithLabelValues(groundingMethod).Observe(confidence)
}

// ObservePipelineNodeDuration records how long one node took to run.
func (r *Recorder) ObservePipelineNodeDuration(node string, seconds float64) {
	r.pipelineNodeDuration.WithLabelValues(node).Observe(seconds)
}

// ObservePipelineNodeFailure increments the failure counter for node.
func (r *Recorder) ObservePipelineNodeFailure(node string) {
	r.pipelineNodeFailures.WithLabelValues(node).Inc()
}
