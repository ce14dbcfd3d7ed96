package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Stats(t *testing.T) {
	cfg := validConfigForTest()

	stats := cfg.Stats()
	assert.Equal(t, 1, stats.LLMProviders)
	assert.Equal(t, 2, stats.TerminologyRoutes)
	assert.Equal(t, 1, stats.OrdinalScales)
	assert.Equal(t, 1, stats.UnitMappings)
}

func TestConfig_ConvenienceGetters(t *testing.T) {
	cfg := validConfigForTest()

	provider, err := cfg.GetLLMProvider("gemini-default")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", provider.Model)

	route, err := cfg.GetTerminologyRoute("condition")
	require.NoError(t, err)
	assert.NotEmpty(t, route.Vocabularies)

	scale, err := cfg.GetOrdinalScale("ecog")
	require.NoError(t, err)
	assert.Equal(t, "ECOG", scale.Name)

	unit, err := cfg.GetUnitMapping("mg")
	require.NoError(t, err)
	assert.Equal(t, int64(8576), unit.OMOPConceptID)
}

func TestConfig_ConfigDir(t *testing.T) {
	cfg := &Config{configDir: "/etc/elixirtrials"}
	assert.Equal(t, "/etc/elixirtrials", cfg.ConfigDir())
}
