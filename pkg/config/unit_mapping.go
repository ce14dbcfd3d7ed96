package config

import (
	"fmt"
	"sync"
)

// UnitMappingEntry maps one UCUM unit code to its corresponding OMOP unit
// concept_id, used by structure to normalize numeric threshold units.
type UnitMappingEntry struct {
	OMOPConceptID int64  `yaml:"omop_concept_id" validate:"required"`
	DisplayName   string `yaml:"display_name,omitempty"`
}

// UnitMappingRegistry stores the UCUM -> OMOP unit concept table in memory
// with thread-safe access.
type UnitMappingRegistry struct {
	units map[string]*UnitMappingEntry
	mu    sync.RWMutex
}

// NewUnitMappingRegistry creates a new unit mapping registry.
func NewUnitMappingRegistry(units map[string]*UnitMappingEntry) *UnitMappingRegistry {
	copied := make(map[string]*UnitMappingEntry, len(units))
	for k, v := range units {
		copied[k] = v
	}
	return &UnitMappingRegistry{
		units: copied,
	}
}

// Get retrieves the OMOP mapping for a UCUM unit code (thread-safe).
func (r *UnitMappingRegistry) Get(ucumCode string) (*UnitMappingEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.units[ucumCode]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnitMappingNotFound, ucumCode)
	}
	return entry, nil
}

// GetAll returns all unit mappings (thread-safe, returns copy).
func (r *UnitMappingRegistry) GetAll() map[string]*UnitMappingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*UnitMappingEntry, len(r.units))
	for k, v := range r.units {
		result[k] = v
	}
	return result
}

// Has checks if a UCUM unit code is mapped (thread-safe).
func (r *UnitMappingRegistry) Has(ucumCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.units[ucumCode]
	return exists
}

// Len returns the number of mapped units (thread-safe).
func (r *UnitMappingRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
