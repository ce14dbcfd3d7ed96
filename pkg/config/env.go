package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvConfig holds the process-level settings read directly from the
// environment rather than from elixirtrials.yaml/llm-providers.yaml —
// storage adapter selection, the OMOP vocabulary connection, terminology
// API credentials, and tracing. Database connection settings are not
// included here; those are DB_*-prefixed and already loaded by
// database.LoadConfigFromEnv.
type EnvConfig struct {
	HTTPPort string
	GinMode  string

	OMOPVocabURL string

	UseLocalStorage bool
	LocalUploadDir  string

	UMLSAPIKey string

	RedisURL string

	MLflowTrackingURI        string
	MLflowTraceTimeoutSeconds int
}

// LoadEnv reads every application-level environment variable named in the
// deployment's recognized options, failing fast with a descriptive error
// if OMOP_VOCAB_URL — the one variable nothing downstream has a usable
// default for — is absent. Everything else falls back to a workable
// development default, the same split cmd/tarsy/main.go's getEnv helper
// draws between flags with defaults and ones that abort startup.
func LoadEnv() (*EnvConfig, error) {
	omopVocabURL := os.Getenv("OMOP_VOCAB_URL")
	if omopVocabURL == "" {
		return nil, fmt.Errorf("%w: OMOP_VOCAB_URL", ErrMissingRequiredField)
	}

	traceTimeout, err := strconv.Atoi(getEnv("MLFLOW_TRACE_TIMEOUT_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid MLFLOW_TRACE_TIMEOUT_SECONDS: %w", err)
	}

	useLocalStorage, err := strconv.ParseBool(getEnv("USE_LOCAL_STORAGE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid USE_LOCAL_STORAGE: %w", err)
	}

	return &EnvConfig{
		HTTPPort:                  getEnv("HTTP_PORT", "8080"),
		GinMode:                   getEnv("GIN_MODE", "debug"),
		OMOPVocabURL:              omopVocabURL,
		UseLocalStorage:           useLocalStorage,
		LocalUploadDir:            getEnv("LOCAL_UPLOAD_DIR", "./data/uploads"),
		UMLSAPIKey:                os.Getenv("UMLS_API_KEY"),
		RedisURL:                  getEnv("REDIS_URL", "redis://localhost:6379/0"),
		MLflowTrackingURI:         os.Getenv("MLFLOW_TRACKING_URI"),
		MLflowTraceTimeoutSeconds: traceTimeout,
	}, nil
}

// TraceTimeout is MLflowTraceTimeoutSeconds as a time.Duration.
func (e *EnvConfig) TraceTimeout() time.Duration {
	return time.Duration(e.MLflowTraceTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
