package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

func ecogScale() *config.OrdinalScaleConfig {
	return &config.OrdinalScaleConfig{
		Name: "ECOG",
		Levels: []config.OrdinalScaleLevel{
			{Value: 0, Label: "Fully active"},
			{Value: 1, Label: "Restricted strenuous activity"},
			{Value: 2, Label: "Ambulatory, up >50% of waking hours"},
			{Value: 3, Label: "Limited self-care"},
			{Value: 4, Label: "Completely disabled"},
		},
	}
}

func TestNormalizeScaleName(t *testing.T) {
	assert.Equal(t, "ecog", normalizeScaleName(" ECOG "))
	assert.Equal(t, "nyha", normalizeScaleName("NYHA"))
}

func TestMatchLevel_ByLabelSubstring(t *testing.T) {
	level, ok := matchLevel(ecogScale(), "limited self-care")
	assert.True(t, ok)
	assert.Equal(t, 3, level.Value)
}

func TestMatchLevel_ByNumericDigit(t *testing.T) {
	level, ok := matchLevel(ecogScale(), "ECOG 2")
	assert.True(t, ok)
	assert.Equal(t, 2, level.Value)
}

func TestMatchLevel_NoMatch(t *testing.T) {
	_, ok := matchLevel(ecogScale(), "not a real level")
	assert.False(t, ok)
}

func TestCloneContextWindow_CopiesWithoutAliasing(t *testing.T) {
	original := map[string]interface{}{"omop_concept_id": int64(12345)}
	clone := cloneContextWindow(original)
	clone["ordinal_scale"] = "ecog"

	assert.Equal(t, int64(12345), original["omop_concept_id"])
	_, present := original["ordinal_scale"]
	assert.False(t, present)
}

func TestCloneContextWindow_NilInputYieldsEmptyMap(t *testing.T) {
	clone := cloneContextWindow(nil)
	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}
