package config

import (
	"sync"
)

// BuiltinConfig holds all built-in configuration data: default LLM
// providers, the terminology routing table, known ordinal scales, and the
// UCUM -> OMOP unit mapping table. User-supplied YAML overrides these
// entry-by-entry; anything not overridden keeps its built-in value.
type BuiltinConfig struct {
	LLMProviders       map[string]LLMProviderConfig
	TerminologyRoutes  map[string]TerminologyRoutingEntry
	OrdinalScales      map[string]OrdinalScaleConfig
	UnitMappings       map[string]UnitMappingEntry
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		LLMProviders:      initBuiltinLLMProviders(),
		TerminologyRoutes: initBuiltinTerminologyRoutes(),
		OrdinalScales:     initBuiltinOrdinalScales(),
		UnitMappings:      initBuiltinUnitMappings(),
	}
}

func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"gemini-default": {
			Type:                  LLMProviderTypeGemini,
			Model:                 "gemini-2.5-pro",
			APIKeyEnv:             "GOOGLE_API_KEY",
			MaxOutputTokens:       65536,
			RequestTimeoutSeconds: 120,
		},
		"medgemma-vertex": {
			Type:                  LLMProviderTypeVertexAI,
			Model:                 "medgemma-27b-it",
			ProjectEnv:            "GOOGLE_CLOUD_PROJECT",
			LocationEnv:           "GOOGLE_CLOUD_LOCATION",
			MaxOutputTokens:       8192,
			RequestTimeoutSeconds: 60,
		},
	}
}

// initBuiltinTerminologyRoutes returns the entity_type -> vocabulary dispatch
// table. Order matters: adapters are queried in the listed order, their
// candidates concatenated, and querying stops once max_candidates is reached.
func initBuiltinTerminologyRoutes() map[string]TerminologyRoutingEntry {
	return map[string]TerminologyRoutingEntry{
		"condition": {
			Vocabularies:  []VocabularySource{VocabularySourceSNOMED, VocabularySourceICD10, VocabularySourceUMLS},
			MaxCandidates: 10,
		},
		"measurement": {
			Vocabularies:  []VocabularySource{VocabularySourceLOINC, VocabularySourceUMLS},
			MaxCandidates: 10,
		},
		"drug": {
			Vocabularies:  []VocabularySource{VocabularySourceRxNorm, VocabularySourceUMLS},
			MaxCandidates: 10,
		},
		"procedure": {
			Vocabularies:  []VocabularySource{VocabularySourceSNOMED, VocabularySourceICD10},
			MaxCandidates: 10,
		},
		"demographic": {
			Vocabularies:  []VocabularySource{VocabularySourceUMLS},
			MaxCandidates: 5,
		},
		"observation": {
			Vocabularies:  []VocabularySource{VocabularySourceSNOMED, VocabularySourceUMLS, VocabularySourceHPO},
			MaxCandidates: 10,
		},
		"consent": {
			Skip: true,
		},
	}
}

func initBuiltinOrdinalScales() map[string]OrdinalScaleConfig {
	return map[string]OrdinalScaleConfig{
		"ecog": {
			Name: "ECOG Performance Status",
			Levels: []OrdinalScaleLevel{
				{Value: 0, Label: "0", Description: "Fully active, able to carry on all pre-disease activities without restriction"},
				{Value: 1, Label: "1", Description: "Restricted in physically strenuous activity but ambulatory and able to carry out light work"},
				{Value: 2, Label: "2", Description: "Ambulatory and capable of all selfcare but unable to carry out any work activities; up and about more than 50% of waking hours"},
				{Value: 3, Label: "3", Description: "Capable of only limited selfcare; confined to bed or chair more than 50% of waking hours"},
				{Value: 4, Label: "4", Description: "Completely disabled; cannot carry on any selfcare; totally confined to bed or chair"},
			},
		},
		"nyha": {
			Name: "New York Heart Association Functional Classification",
			Levels: []OrdinalScaleLevel{
				{Value: 1, Label: "I", Description: "No limitation of physical activity"},
				{Value: 2, Label: "II", Description: "Slight limitation of physical activity"},
				{Value: 3, Label: "III", Description: "Marked limitation of physical activity"},
				{Value: 4, Label: "IV", Description: "Unable to carry on any physical activity without discomfort"},
			},
		},
		"karnofsky": {
			Name: "Karnofsky Performance Status",
			Levels: []OrdinalScaleLevel{
				{Value: 100, Label: "100", Description: "Normal, no complaints, no evidence of disease"},
				{Value: 90, Label: "90", Description: "Able to carry on normal activity, minor signs or symptoms of disease"},
				{Value: 80, Label: "80", Description: "Normal activity with effort, some signs or symptoms of disease"},
				{Value: 70, Label: "70", Description: "Cares for self, unable to carry on normal activity or active work"},
				{Value: 60, Label: "60", Description: "Requires occasional assistance but able to care for most needs"},
				{Value: 50, Label: "50", Description: "Requires considerable assistance and frequent medical care"},
				{Value: 40, Label: "40", Description: "Disabled, requires special care and assistance"},
				{Value: 30, Label: "30", Description: "Severely disabled, hospitalization indicated though death not imminent"},
				{Value: 20, Label: "20", Description: "Very sick, hospitalization necessary, active supportive treatment necessary"},
				{Value: 10, Label: "10", Description: "Moribund, fatal processes progressing rapidly"},
			},
		},
		"child-pugh": {
			Name: "Child-Pugh Classification",
			Levels: []OrdinalScaleLevel{
				{Value: 1, Label: "A", Description: "5-6 points: well-compensated liver disease"},
				{Value: 2, Label: "B", Description: "7-9 points: significant functional compromise"},
				{Value: 3, Label: "C", Description: "10-15 points: decompensated liver disease"},
			},
		},
	}
}

// initBuiltinUnitMappings returns the UCUM -> OMOP unit concept_id table
// used by structure to normalize numeric threshold units. OMOP concept_ids
// below are the standard "Unit" domain concepts from the OHDSI vocabulary.
func initBuiltinUnitMappings() map[string]UnitMappingEntry {
	return map[string]UnitMappingEntry{
		"mg":        {OMOPConceptID: 8576, DisplayName: "milligram"},
		"g":         {OMOPConceptID: 8504, DisplayName: "gram"},
		"kg":        {OMOPConceptID: 9529, DisplayName: "kilogram"},
		"ug":        {OMOPConceptID: 9655, DisplayName: "microgram"},
		"mL":        {OMOPConceptID: 8587, DisplayName: "milliliter"},
		"L":         {OMOPConceptID: 8519, DisplayName: "liter"},
		"mg/dL":     {OMOPConceptID: 8840, DisplayName: "milligram per deciliter"},
		"mg/mL":     {OMOPConceptID: 9551, DisplayName: "milligram per milliliter"},
		"g/dL":      {OMOPConceptID: 8713, DisplayName: "gram per deciliter"},
		"mmol/L":    {OMOPConceptID: 8753, DisplayName: "millimole per liter"},
		"umol/L":    {OMOPConceptID: 8749, DisplayName: "micromole per liter"},
		"mEq/L":     {OMOPConceptID: 9557, DisplayName: "milliequivalent per liter"},
		"IU/L":      {OMOPConceptID: 8645, DisplayName: "international unit per liter"},
		"U/L":       {OMOPConceptID: 8645, DisplayName: "unit per liter"},
		"%":         {OMOPConceptID: 8554, DisplayName: "percent"},
		"10*3/uL":   {OMOPConceptID: 8848, DisplayName: "thousand per microliter"},
		"10*6/uL":   {OMOPConceptID: 8815, DisplayName: "million per microliter"},
		"10*9/L":    {OMOPConceptID: 8815, DisplayName: "billion per liter"},
		"cells/uL":  {OMOPConceptID: 8784, DisplayName: "cells per microliter"},
		"copies/mL": {OMOPConceptID: 9550, DisplayName: "copies per milliliter"},
		"mm":        {OMOPConceptID: 8582, DisplayName: "millimeter"},
		"cm":        {OMOPConceptID: 8582, DisplayName: "centimeter"},
		"m":         {OMOPConceptID: 8588, DisplayName: "meter"},
		"m2":        {OMOPConceptID: 8617, DisplayName: "square meter"},
		"mmHg":      {OMOPConceptID: 8876, DisplayName: "millimeter mercury column"},
		"bpm":       {OMOPConceptID: 8541, DisplayName: "beats per minute"},
		"/min":      {OMOPConceptID: 8541, DisplayName: "per minute"},
		"h":         {OMOPConceptID: 8505, DisplayName: "hour"},
		"d":         {OMOPConceptID: 8507, DisplayName: "day"},
		"wk":        {OMOPConceptID: 8552, DisplayName: "week"},
		"mo":        {OMOPConceptID: 9448, DisplayName: "month"},
		"a":         {OMOPConceptID: 9447, DisplayName: "year"},
		"ng/mL":     {OMOPConceptID: 9552, DisplayName: "nanogram per milliliter"},
		"pg/mL":     {OMOPConceptID: 8785, DisplayName: "picogram per milliliter"},
	}
}
