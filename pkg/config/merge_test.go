package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLLMProviders_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"gemini-default": {Type: LLMProviderTypeGemini, Model: "gemini-2.5-pro"},
	}
	user := map[string]LLMProviderConfig{
		"gemini-default": {Type: LLMProviderTypeGemini, Model: "gemini-3.0-pro"},
		"custom":         {Type: LLMProviderTypeVertexAI, Model: "custom-model"},
	}

	merged := mergeLLMProviders(builtin, user)

	assert.Len(t, merged, 2)
	assert.Equal(t, "gemini-3.0-pro", merged["gemini-default"].Model)
	assert.Equal(t, "custom-model", merged["custom"].Model)
}

func TestMergeTerminologyRoutes_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]TerminologyRoutingEntry{
		"condition": {Vocabularies: []VocabularySource{VocabularySourceSNOMED}, MaxCandidates: 10},
	}
	user := map[string]TerminologyRoutingEntry{
		"condition": {Vocabularies: []VocabularySource{VocabularySourceICD10}, MaxCandidates: 5},
	}

	merged := mergeTerminologyRoutes(builtin, user)

	assert.Len(t, merged, 1)
	assert.Equal(t, []VocabularySource{VocabularySourceICD10}, merged["condition"].Vocabularies)
	assert.Equal(t, 5, merged["condition"].MaxCandidates)
}

func TestMergeOrdinalScales_BuiltinRetainedWhenNotOverridden(t *testing.T) {
	builtin := map[string]OrdinalScaleConfig{
		"ecog": {Name: "ECOG Performance Status", Levels: []OrdinalScaleLevel{{Value: 0, Label: "0"}}},
	}
	user := map[string]OrdinalScaleConfig{
		"custom-scale": {Name: "Custom", Levels: []OrdinalScaleLevel{{Value: 1, Label: "low"}}},
	}

	merged := mergeOrdinalScales(builtin, user)

	assert.Len(t, merged, 2)
	assert.Equal(t, "ECOG Performance Status", merged["ecog"].Name)
	assert.Equal(t, "Custom", merged["custom-scale"].Name)
}

func TestMergeUnitMappings_UserOverridesBuiltin(t *testing.T) {
	builtin := map[string]UnitMappingEntry{
		"mg": {OMOPConceptID: 8576, DisplayName: "milligram"},
	}
	user := map[string]UnitMappingEntry{
		"mg": {OMOPConceptID: 99999, DisplayName: "milligram (overridden)"},
	}

	merged := mergeUnitMappings(builtin, user)

	assert.Len(t, merged, 1)
	assert.Equal(t, int64(99999), merged["mg"].OMOPConceptID)
}
