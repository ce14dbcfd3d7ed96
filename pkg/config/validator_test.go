package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfigForTest() *Config {
	llm := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"gemini-default": {Type: LLMProviderTypeGemini, Model: "gemini-2.5-pro", MaxOutputTokens: 4096},
	})
	routes := NewTerminologyRoutingRegistry(map[string]*TerminologyRoutingEntry{
		"condition": {Vocabularies: []VocabularySource{VocabularySourceSNOMED}, MaxCandidates: 10},
		"consent":   {Skip: true},
	})
	scales := NewOrdinalScaleRegistry(map[string]*OrdinalScaleConfig{
		"ecog": {Name: "ECOG", Levels: []OrdinalScaleLevel{{Value: 0, Label: "0"}}},
	})
	units := NewUnitMappingRegistry(map[string]*UnitMappingEntry{
		"mg": {OMOPConceptID: 8576, DisplayName: "milligram"},
	})

	return &Config{
		Defaults:                   &Defaults{ExtractionProvider: "gemini-default", GroundingProvider: "gemini-default", GroundingConcurrency: 4, PipelineTimeoutSeconds: 1200},
		LLMProviderRegistry:        llm,
		TerminologyRoutingRegistry: routes,
		OrdinalScaleRegistry:       scales,
		UnitMappingRegistry:        units,
	}
}

func TestValidator_ValidateAll_Valid(t *testing.T) {
	cfg := validConfigForTest()
	err := NewValidator(cfg).ValidateAll()
	assert.NoError(t, err)
}

func TestValidator_ValidateLLMProviders_RejectsMissingModel(t *testing.T) {
	cfg := validConfigForTest()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"broken": {Type: LLMProviderTypeGemini, MaxOutputTokens: 4096},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidator_ValidateLLMProviders_RejectsLowMaxOutputTokens(t *testing.T) {
	cfg := validConfigForTest()
	cfg.LLMProviderRegistry = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"broken": {Type: LLMProviderTypeGemini, Model: "gemini-2.5-pro", MaxOutputTokens: 10},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidator_ValidateTerminologyRoutes_RejectsEmptyVocabulariesWithoutSkip(t *testing.T) {
	cfg := validConfigForTest()
	cfg.TerminologyRoutingRegistry = NewTerminologyRoutingRegistry(map[string]*TerminologyRoutingEntry{
		"condition": {MaxCandidates: 10},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidator_ValidateOrdinalScales_RejectsDuplicateLabels(t *testing.T) {
	cfg := validConfigForTest()
	cfg.OrdinalScaleRegistry = NewOrdinalScaleRegistry(map[string]*OrdinalScaleConfig{
		"ecog": {Name: "ECOG", Levels: []OrdinalScaleLevel{{Value: 0, Label: "0"}, {Value: 1, Label: "0"}}},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidator_ValidateUnitMappings_RejectsNonPositiveConceptID(t *testing.T) {
	cfg := validConfigForTest()
	cfg.UnitMappingRegistry = NewUnitMappingRegistry(map[string]*UnitMappingEntry{
		"mg": {OMOPConceptID: 0, DisplayName: "milligram"},
	})

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}

func TestValidator_ValidateDefaults_RejectsUnknownProvider(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Defaults.ExtractionProvider = "does-not-exist"

	err := NewValidator(cfg).ValidateAll()
	assert.Error(t, err)
}
