package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminologyRoutingRegistry(t *testing.T) {
	routes := map[string]*TerminologyRoutingEntry{
		"condition": {Vocabularies: []VocabularySource{VocabularySourceSNOMED, VocabularySourceICD10}, MaxCandidates: 10},
		"consent":   {Skip: true},
	}
	registry := NewTerminologyRoutingRegistry(routes)

	assert.Equal(t, 2, registry.Len())
	assert.True(t, registry.Has("condition"))

	condition, err := registry.Get("condition")
	assert.NoError(t, err)
	assert.Equal(t, []VocabularySource{VocabularySourceSNOMED, VocabularySourceICD10}, condition.Vocabularies)

	consent, err := registry.Get("consent")
	assert.NoError(t, err)
	assert.True(t, consent.Skip)

	_, err = registry.Get("unknown")
	assert.True(t, errors.Is(err, ErrTerminologyRouteNotFound))
}
