package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ElixirTrialsYAMLConfig represents the complete elixirtrials.yaml file structure.
type ElixirTrialsYAMLConfig struct {
	TerminologyRouting map[string]TerminologyRoutingEntry `yaml:"terminology_routing"`
	OrdinalScales      map[string]OrdinalScaleConfig      `yaml:"ordinal_scales"`
	UnitMappings       map[string]UnitMappingEntry        `yaml:"unit_mappings"`
	Defaults           *Defaults                          `yaml:"defaults"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.InfoContext(ctx, "configuration initialized successfully",
		"llm_providers", stats.LLMProviders,
		"terminology_routes", stats.TerminologyRoutes,
		"ordinal_scales", stats.OrdinalScales,
		"unit_mappings", stats.UnitMappings)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	elixirConfig, err := loader.loadElixirTrialsYAML()
	if err != nil {
		return nil, NewLoadError("elixirtrials.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)
	routesMerged := mergeTerminologyRoutes(builtin.TerminologyRoutes, elixirConfig.TerminologyRouting)
	scalesMerged := mergeOrdinalScales(builtin.OrdinalScales, elixirConfig.OrdinalScales)
	unitsMerged := mergeUnitMappings(builtin.UnitMappings, elixirConfig.UnitMappings)

	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)
	routingRegistry := NewTerminologyRoutingRegistry(routesMerged)
	scaleRegistry := NewOrdinalScaleRegistry(scalesMerged)
	unitRegistry := NewUnitMappingRegistry(unitsMerged)

	defaults := elixirConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.ExtractionProvider == "" {
		defaults.ExtractionProvider = "gemini-default"
	}
	if defaults.GroundingProvider == "" {
		defaults.GroundingProvider = "medgemma-vertex"
	}
	if defaults.GroundingConcurrency == 0 {
		defaults.GroundingConcurrency = 4
	}
	if defaults.PipelineTimeoutSeconds == 0 {
		defaults.PipelineTimeoutSeconds = 20 * 60
	}

	return &Config{
		configDir:                  configDir,
		Defaults:                   defaults,
		LLMProviderRegistry:        llmProviderRegistry,
		TerminologyRoutingRegistry: routingRegistry,
		OrdinalScaleRegistry:       scaleRegistry,
		UnitMappingRegistry:        unitRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax. Note:
	// ExpandEnv passes through original data on parse/execution errors,
	// allowing the YAML parser to handle the content (or fail with a
	// clearer error message).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadElixirTrialsYAML() (*ElixirTrialsYAMLConfig, error) {
	var config ElixirTrialsYAMLConfig

	config.TerminologyRouting = make(map[string]TerminologyRoutingEntry)
	config.OrdinalScales = make(map[string]OrdinalScaleConfig)
	config.UnitMappings = make(map[string]UnitMappingEntry)

	if err := l.loadYAML("elixirtrials.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var config LLMProvidersYAMLConfig

	config.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, err
	}

	return config.LLMProviders, nil
}
