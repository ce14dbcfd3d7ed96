package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/genai"

	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/config"
)

// modelInvoker is the thin seam between the gateway and the genai SDK,
// narrow enough to fake in tests without standing up a real client.
type modelInvoker interface {
	Invoke(ctx context.Context, model, prompt string, schema *Schema, temperature float32) (string, error)
}

// genaiInvoker wraps one genai.Client, configured for either the Gemini
// developer API or the Vertex AI backend hosting MedGemma.
type genaiInvoker struct {
	client *genai.Client
}

// newGenAIInvoker builds a genai.Client for provider, selecting the backend
// from provider.Type the same way the teacher selects a per-target client
// in its LLM call layer.
func newGenAIInvoker(ctx context.Context, provider *config.LLMProviderConfig) (*genaiInvoker, error) {
	cfg := &genai.ClientConfig{}

	switch provider.Type {
	case config.LLMProviderTypeGemini:
		cfg.Backend = genai.BackendGeminiAPI
		if provider.APIKeyEnv != "" {
			cfg.APIKey = os.Getenv(provider.APIKeyEnv)
		}
	case config.LLMProviderTypeVertexAI:
		cfg.Backend = genai.BackendVertexAI
		if provider.ProjectEnv != "" {
			cfg.Project = os.Getenv(provider.ProjectEnv)
		}
		if provider.LocationEnv != "" {
			cfg.Location = os.Getenv(provider.LocationEnv)
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", provider.Type)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &genaiInvoker{client: client}, nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genai.Type(s.Type),
		Required: s.Required,
		Enum:     s.Enum,
	}
	if s.Items != nil {
		out.Items = toGenAISchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenAISchema(v)
		}
	}
	return out
}

// Invoke renders no templating of its own: prompt is already-rendered text.
// A 429, 5xx or network-level failure from the genai SDK is wrapped in
// apperrors.TransientUpstreamError so the retry layer can classify it;
// other errors are returned without that wrapper.
func (g *genaiInvoker) Invoke(ctx context.Context, model, prompt string, schema *Schema, temperature float32) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenAISchema(schema),
		Temperature:      genai.Ptr(temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return "", classifyGenAIError("genai", err)
	}

	text := resp.Text()
	if text == "" {
		return "", apperrors.NewGroundingFailureError("", "model returned empty response")
	}
	return text, nil
}

// classifyGenAIError wraps a genai SDK error as a transient upstream error
// when it looks retryable (429/5xx/network), otherwise returns it unwrapped
// so the retry layer treats it as a non-retryable schema/validation failure.
func classifyGenAIError(upstream string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return apperrors.NewTransientUpstreamError(upstream, apiErr.Code, err)
		}
		return err
	}
	// Anything that isn't a well-formed API error (context deadline,
	// connection refused, DNS failure, ...) is treated as transient.
	return apperrors.NewTransientUpstreamError(upstream, 0, err)
}
