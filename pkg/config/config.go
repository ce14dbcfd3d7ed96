package config

// Config is the umbrella configuration object encapsulating all registries
// and defaults. This is the primary object returned by Initialize and used
// throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults.
	Defaults *Defaults

	// Component registries.
	LLMProviderRegistry        *LLMProviderRegistry
	TerminologyRoutingRegistry *TerminologyRoutingRegistry
	OrdinalScaleRegistry       *OrdinalScaleRegistry
	UnitMappingRegistry        *UnitMappingRegistry
}

// Initialize is defined in loader.go.

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	LLMProviders       int
	TerminologyRoutes  int
	OrdinalScales      int
	UnitMappings       int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders:      c.LLMProviderRegistry.Len(),
		TerminologyRoutes: c.TerminologyRoutingRegistry.Len(),
		OrdinalScales:     c.OrdinalScaleRegistry.Len(),
		UnitMappings:      c.UnitMappingRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

// GetTerminologyRoute retrieves the vocabulary dispatch entry for an entity type.
func (c *Config) GetTerminologyRoute(entityType string) (*TerminologyRoutingEntry, error) {
	return c.TerminologyRoutingRegistry.Get(entityType)
}

// GetOrdinalScale retrieves a known ordinal scale definition by name.
func (c *Config) GetOrdinalScale(name string) (*OrdinalScaleConfig, error) {
	return c.OrdinalScaleRegistry.Get(name)
}

// GetUnitMapping retrieves the OMOP unit concept mapped to a UCUM unit code.
func (c *Config) GetUnitMapping(ucumCode string) (*UnitMappingEntry, error) {
	return c.UnitMappingRegistry.Get(ucumCode)
}
