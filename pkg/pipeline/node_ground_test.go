package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elixirtrials/elixirtrials/pkg/terminology"
)

func TestOmopDomainHint(t *testing.T) {
	assert.Equal(t, "Condition", omopDomainHint("condition"))
	assert.Equal(t, "Measurement", omopDomainHint("measurement"))
	assert.Equal(t, "Drug", omopDomainHint("drug"))
	assert.Equal(t, "Procedure", omopDomainHint("procedure"))
	assert.Equal(t, "", omopDomainHint("demographic"))
	assert.Equal(t, "", omopDomainHint("consent"))
	assert.Equal(t, "", omopDomainHint("other"))
}

func TestHasUsableCode(t *testing.T) {
	assert.True(t, hasUsableCode(groundingDecision{SelectedCode: "E11.9"}))
	assert.True(t, hasUsableCode(groundingDecision{ConceptID: 201826}))
	assert.False(t, hasUsableCode(groundingDecision{}))
}

func TestMaxPathConfidence(t *testing.T) {
	assert.Equal(t, 0.0, maxPathConfidence(nil, nil))

	candidates := []terminology.Candidate{{ConfidenceHint: 0.4}, {ConfidenceHint: 0.8}}
	assert.Equal(t, 0.8, maxPathConfidence(candidates, nil))

	concept := &omopConceptResult{Confidence: 0.9}
	assert.Equal(t, 0.9, maxPathConfidence(candidates, concept))

	lowConcept := &omopConceptResult{Confidence: 0.1}
	assert.Equal(t, 0.8, maxPathConfidence(candidates, lowConcept))
}

func TestGroundingMethodFor(t *testing.T) {
	assert.Equal(t, "exact", groundingMethodFor(nil, &omopConceptResult{Confidence: 0.97}))
	assert.Equal(t, "search", groundingMethodFor([]terminology.Candidate{{Code: "E11.9"}}, nil))
	assert.Equal(t, "search", groundingMethodFor(nil, &omopConceptResult{Confidence: 0.7}))
	assert.Equal(t, "expert_review", groundingMethodFor(nil, nil))
}

func TestGroundEntity_ConsentShortCircuitsToSkipped(t *testing.T) {
	deps := &Deps{}
	ge := groundEntity(nil, deps, "criterion-1", entityCandidate{
		EntityText: "informed consent obtained",
		EntityType: "consent",
	})

	assert.Equal(t, "skipped", ge.GroundingMethod)
	assert.Equal(t, "criterion-1", ge.CriterionID)
	assert.Equal(t, "informed consent obtained", ge.EntityText)
	assert.Equal(t, 0.0, ge.GroundingConfidence)
}
