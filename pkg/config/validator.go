package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	if err := v.validateTerminologyRoutes(); err != nil {
		return fmt.Errorf("terminology routing validation failed: %w", err)
	}

	if err := v.validateOrdinalScales(); err != nil {
		return fmt.Errorf("ordinal scale validation failed: %w", err)
	}

	if err := v.validateUnitMappings(); err != nil {
		return fmt.Errorf("unit mapping validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}

		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model required"))
		}

		if provider.MaxOutputTokens < 256 {
			return NewValidationError("llm_provider", name, "max_output_tokens", fmt.Errorf("must be at least 256"))
		}

		if provider.Type == LLMProviderTypeGemini {
			if provider.APIKeyEnv != "" {
				if value := os.Getenv(provider.APIKeyEnv); value == "" {
					return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
				}
			}
		}

		if provider.Type == LLMProviderTypeVertexAI {
			if provider.ProjectEnv != "" {
				if value := os.Getenv(provider.ProjectEnv); value == "" {
					return NewValidationError("llm_provider", name, "project_env", fmt.Errorf("environment variable %s is not set", provider.ProjectEnv))
				}
			}
			if provider.LocationEnv != "" {
				if value := os.Getenv(provider.LocationEnv); value == "" {
					return NewValidationError("llm_provider", name, "location_env", fmt.Errorf("environment variable %s is not set", provider.LocationEnv))
				}
			}
		}
	}

	return nil
}

func (v *Validator) validateTerminologyRoutes() error {
	for entityType, route := range v.cfg.TerminologyRoutingRegistry.GetAll() {
		if route.Skip {
			continue
		}

		if len(route.Vocabularies) == 0 {
			return NewValidationError("terminology_route", entityType, "vocabularies", fmt.Errorf("at least one vocabulary required unless skip is set"))
		}

		for _, vocab := range route.Vocabularies {
			if !vocab.IsValid() {
				return NewValidationError("terminology_route", entityType, "vocabularies", fmt.Errorf("invalid vocabulary: %s", vocab))
			}
		}

		if route.MaxCandidates < 0 {
			return NewValidationError("terminology_route", entityType, "max_candidates", fmt.Errorf("must be non-negative"))
		}
	}

	return nil
}

func (v *Validator) validateOrdinalScales() error {
	for name, scale := range v.cfg.OrdinalScaleRegistry.GetAll() {
		if scale.Name == "" {
			return NewValidationError("ordinal_scale", name, "name", fmt.Errorf("name required"))
		}

		if len(scale.Levels) == 0 {
			return NewValidationError("ordinal_scale", name, "levels", fmt.Errorf("at least one level required"))
		}

		seen := make(map[string]bool, len(scale.Levels))
		for i, level := range scale.Levels {
			if level.Label == "" {
				return NewValidationError("ordinal_scale", name, fmt.Sprintf("levels[%d].label", i), fmt.Errorf("label required"))
			}
			if seen[level.Label] {
				return NewValidationError("ordinal_scale", name, "levels", fmt.Errorf("duplicate label: %s", level.Label))
			}
			seen[level.Label] = true
		}
	}

	return nil
}

func (v *Validator) validateUnitMappings() error {
	for code, unit := range v.cfg.UnitMappingRegistry.GetAll() {
		if code == "" {
			return NewValidationError("unit_mapping", code, "", fmt.Errorf("UCUM code required"))
		}
		if unit.OMOPConceptID <= 0 {
			return NewValidationError("unit_mapping", code, "omop_concept_id", fmt.Errorf("must be positive"))
		}
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	defaults := v.cfg.Defaults
	if defaults == nil {
		return nil
	}

	if defaults.ExtractionProvider != "" && !v.cfg.LLMProviderRegistry.Has(defaults.ExtractionProvider) {
		return NewValidationError("defaults", "", "extraction_provider", fmt.Errorf("LLM provider '%s' not found", defaults.ExtractionProvider))
	}

	if defaults.GroundingProvider != "" && !v.cfg.LLMProviderRegistry.Has(defaults.GroundingProvider) {
		return NewValidationError("defaults", "", "grounding_provider", fmt.Errorf("LLM provider '%s' not found", defaults.GroundingProvider))
	}

	if defaults.GroundingConcurrency < 0 {
		return NewValidationError("defaults", "", "grounding_concurrency", fmt.Errorf("must be non-negative"))
	}

	if defaults.PipelineTimeoutSeconds < 0 {
		return NewValidationError("defaults", "", "pipeline_timeout_seconds", fmt.Errorf("must be non-negative"))
	}

	return nil
}
