package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyBatch(t *testing.T) {
	report := Evaluate(nil)
	assert.Equal(t, BatchReport{}, report)
}

func TestEvaluate_MixedOutcomes(t *testing.T) {
	outcomes := []EntityOutcome{
		{GroundingMethod: "exact", GroundingConfidence: 0.95},
		{GroundingMethod: "search", GroundingConfidence: 0.80},
		{GroundingMethod: "agentic", GroundingConfidence: 0.55},
		{GroundingMethod: "expert_review", GroundingConfidence: 0.20},
		{GroundingMethod: "skipped", GroundingConfidence: 0},
	}

	report := Evaluate(outcomes)

	assert.Equal(t, 5, report.TotalEntities)
	assert.InDelta(t, 0.5, report.MeanConfidence, 0.001)
	assert.InDelta(t, 0.2, report.AgenticRetryRate, 0.001)
	assert.InDelta(t, 0.2, report.ExpertReviewRate, 0.001)
	assert.InDelta(t, 0.2, report.SkippedRate, 0.001)
}

func TestEvaluate_MedianOddAndEven(t *testing.T) {
	odd := Evaluate([]EntityOutcome{
		{GroundingConfidence: 0.1},
		{GroundingConfidence: 0.9},
		{GroundingConfidence: 0.5},
	})
	assert.InDelta(t, 0.5, odd.MedianConfidence, 0.001)

	even := Evaluate([]EntityOutcome{
		{GroundingConfidence: 0.2},
		{GroundingConfidence: 0.8},
	})
	assert.InDelta(t, 0.5, even.MedianConfidence, 0.001)
}
