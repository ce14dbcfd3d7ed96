package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecorder_ObserveReviewActionIncrementsCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	recorder.ObserveReviewAction("criteria", "approve")
	recorder.ObserveReviewAction("criteria", "approve")
	recorder.ObserveReviewAction("entity", "modify")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got := counterValue(t, families, "elixirtrials_review_actions_total", map[string]string{
		"target_type": "criteria",
		"action":      "approve",
	})
	if got != 2 {
		t.Fatalf("expected 2 approve actions recorded, got %v", got)
	}
}

func TestRecorder_ObservePipelineNodeFailureIncrementsCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)

	recorder.ObservePipelineNodeFailure("ground")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got := counterValue(t, families, "elixirtrials_pipeline_node_failures_total", map[string]string{"node": "ground"})
	if got != 1 {
		t.Fatalf("expected 1 failure recorded, got %v", got)
	}
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
