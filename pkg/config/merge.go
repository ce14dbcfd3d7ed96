package config

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in ones with the
// same name.
func mergeLLMProviders(builtinProviders map[string]LLMProviderConfig, userProviders map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig)

	for name, provider := range builtinProviders {
		providerCopy := provider
		result[name] = &providerCopy
	}

	for name, userProvider := range userProviders {
		providerCopy := userProvider
		result[name] = &providerCopy
	}

	return result
}

// mergeTerminologyRoutes merges built-in and user-defined routing entries.
// User-defined entries override built-in ones for the same entity type.
func mergeTerminologyRoutes(builtinRoutes map[string]TerminologyRoutingEntry, userRoutes map[string]TerminologyRoutingEntry) map[string]*TerminologyRoutingEntry {
	result := make(map[string]*TerminologyRoutingEntry)

	for entityType, route := range builtinRoutes {
		routeCopy := route
		result[entityType] = &routeCopy
	}

	for entityType, userRoute := range userRoutes {
		routeCopy := userRoute
		result[entityType] = &routeCopy
	}

	return result
}

// mergeOrdinalScales merges built-in and user-defined ordinal scale
// definitions. User-defined scales override built-in ones with the same name.
func mergeOrdinalScales(builtinScales map[string]OrdinalScaleConfig, userScales map[string]OrdinalScaleConfig) map[string]*OrdinalScaleConfig {
	result := make(map[string]*OrdinalScaleConfig)

	for name, scale := range builtinScales {
		scaleCopy := scale
		result[name] = &scaleCopy
	}

	for name, userScale := range userScales {
		scaleCopy := userScale
		result[name] = &scaleCopy
	}

	return result
}

// mergeUnitMappings merges built-in and user-defined UCUM -> OMOP unit
// mappings. User-defined entries override built-in ones for the same code.
func mergeUnitMappings(builtinUnits map[string]UnitMappingEntry, userUnits map[string]UnitMappingEntry) map[string]*UnitMappingEntry {
	result := make(map[string]*UnitMappingEntry)

	for code, unit := range builtinUnits {
		unitCopy := unit
		result[code] = &unitCopy
	}

	for code, userUnit := range userUnits {
		unitCopy := userUnit
		result[code] = &unitCopy
	}

	return result
}
