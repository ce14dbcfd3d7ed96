package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMProviderRegistry(t *testing.T) {
	providers := map[string]*LLMProviderConfig{
		"gemini-default": {Type: LLMProviderTypeGemini, Model: "gemini-2.5-pro", MaxOutputTokens: 8192},
	}
	registry := NewLLMProviderRegistry(providers)

	assert.Equal(t, 1, registry.Len())
	assert.True(t, registry.Has("gemini-default"))
	assert.False(t, registry.Has("missing"))

	got, err := registry.Get("gemini-default")
	assert.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", got.Model)

	_, err = registry.Get("missing")
	assert.True(t, errors.Is(err, ErrLLMProviderNotFound))
}

func TestLLMProviderRegistry_DefensiveCopy(t *testing.T) {
	providers := map[string]*LLMProviderConfig{
		"gemini-default": {Type: LLMProviderTypeGemini, Model: "gemini-2.5-pro", MaxOutputTokens: 8192},
	}
	registry := NewLLMProviderRegistry(providers)

	providers["gemini-default"] = &LLMProviderConfig{Model: "mutated"}

	got, err := registry.Get("gemini-default")
	assert.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", got.Model, "registry must not be affected by mutating the caller's map")

	all := registry.GetAll()
	all["gemini-default"] = &LLMProviderConfig{Model: "mutated again"}

	got, err = registry.Get("gemini-default")
	assert.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", got.Model, "mutating GetAll's result must not affect the registry")
}
