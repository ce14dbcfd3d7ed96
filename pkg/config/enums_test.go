package config

import "testing"

func TestLLMProviderType_IsValid(t *testing.T) {
	tests := []struct {
		name string
		typ  LLMProviderType
		want bool
	}{
		{"gemini is valid", LLMProviderTypeGemini, true},
		{"vertexai is valid", LLMProviderTypeVertexAI, true},
		{"empty is invalid", LLMProviderType(""), false},
		{"unknown is invalid", LLMProviderType("openai"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVocabularySource_IsValid(t *testing.T) {
	tests := []struct {
		name string
		src  VocabularySource
		want bool
	}{
		{"umls is valid", VocabularySourceUMLS, true},
		{"snomed is valid", VocabularySourceSNOMED, true},
		{"icd10 is valid", VocabularySourceICD10, true},
		{"rxnorm is valid", VocabularySourceRxNorm, true},
		{"loinc is valid", VocabularySourceLOINC, true},
		{"hpo is valid", VocabularySourceHPO, true},
		{"unknown is invalid", VocabularySource("meddra"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
