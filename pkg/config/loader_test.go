package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testElixirTrialsYAML = `
terminology_routing:
  condition:
    vocabularies: ["snomed", "icd10"]
    max_candidates: 8
defaults:
  extraction_provider: gemini-default
  grounding_provider: medgemma-vertex
  grounding_concurrency: 2
  pipeline_timeout_seconds: 600
`

const testLLMProvidersYAML = `
llm_providers:
  gemini-default:
    type: gemini
    model: gemini-2.5-pro
    api_key_env: GOOGLE_API_KEY
    max_output_tokens: 65536
    request_timeout_seconds: 120
`

func writeTestConfigFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "elixirtrials.yaml"), []byte(testElixirTrialsYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm-providers.yaml"), []byte(testLLMProvidersYAML), 0o644))
}

func TestInitialize_LoadsAndMergesConfig(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "us-central1")
	dir := t.TempDir()
	writeTestConfigFiles(t, dir)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	route, err := cfg.GetTerminologyRoute("condition")
	require.NoError(t, err)
	assert.Equal(t, 8, route.MaxCandidates)

	// Built-in routes not present in the user YAML survive the merge.
	_, err = cfg.GetTerminologyRoute("measurement")
	assert.NoError(t, err)

	assert.Equal(t, "gemini-default", cfg.Defaults.ExtractionProvider)
	assert.Equal(t, 2, cfg.Defaults.GroundingConcurrency)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestInitialize_DefaultsBackfilledWhenOmitted(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "us-central1")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "elixirtrials.yaml"), []byte("terminology_routing: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm-providers.yaml"), []byte(testLLMProvidersYAML), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "gemini-default", cfg.Defaults.ExtractionProvider)
	assert.Equal(t, "medgemma-vertex", cfg.Defaults.GroundingProvider)
	assert.Equal(t, 4, cfg.Defaults.GroundingConcurrency)
	assert.Equal(t, 1200, cfg.Defaults.PipelineTimeoutSeconds)
}
