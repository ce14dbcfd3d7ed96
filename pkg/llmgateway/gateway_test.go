package llmgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/config"
)

type fakeInvoker struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeInvoker) Invoke(ctx context.Context, model, prompt string, schema *Schema, temperature float32) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeInvoker: out of responses")
}

func newTestGateway(t *testing.T, invoker modelInvoker) *Gateway {
	t.Helper()

	providers := config.NewLLMProviderRegistry(map[string]*config.LLMProviderConfig{
		"gemini-default": {Type: config.LLMProviderTypeGemini, Model: "gemini-2.5-pro"},
	})
	templates := NewTemplateStoreFromMap(map[string]string{
		"extract": "Extract entities from: {{document_text}}",
	})

	g := New(providers, templates)
	g.newInvoker = func(ctx context.Context, provider *config.LLMProviderConfig) (modelInvoker, error) {
		return invoker, nil
	}
	return g
}

func TestGateway_Call_RendersTemplateAndReturnsResult(t *testing.T) {
	fake := &fakeInvoker{responses: []string{`{"entities":[]}`}}
	g := newTestGateway(t, fake)

	result, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "patient has diabetes"},
		Target:       TargetGemini,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"entities":[]}`, result.RawText)
	assert.Equal(t, "gemini-2.5-pro", result.Model)
	assert.Equal(t, 1, fake.calls)
}

func TestGateway_Call_UnknownTargetIsValidationError(t *testing.T) {
	fake := &fakeInvoker{responses: []string{"{}"}}
	g := newTestGateway(t, fake)

	_, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "x"},
		Target:       Target("not-a-target"),
	})

	require.Error(t, err)
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, fake.calls)
}

func TestGateway_Call_MissingTemplateVariableIsValidationError(t *testing.T) {
	fake := &fakeInvoker{responses: []string{"{}"}}
	g := newTestGateway(t, fake)

	_, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{},
		Target:       TargetGemini,
	})

	require.Error(t, err)
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, fake.calls)
}

func TestGateway_Call_RetriesTransientUpstreamThenSucceeds(t *testing.T) {
	fake := &fakeInvoker{
		errs:      []error{apperrors.NewTransientUpstreamError("genai", 503, errors.New("unavailable")), nil},
		responses: []string{"", `{"ok":true}`},
	}
	g := newTestGateway(t, fake)

	result, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "x"},
		Target:       TargetGemini,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, result.RawText)
	assert.Equal(t, 2, fake.calls)
}

func TestGateway_Call_GivesUpAfterMaxAttempts(t *testing.T) {
	transient := apperrors.NewTransientUpstreamError("genai", 503, errors.New("unavailable"))
	fake := &fakeInvoker{errs: []error{transient, transient, transient}}
	g := newTestGateway(t, fake)

	_, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "x"},
		Target:       TargetGemini,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTransientUpstream))
	assert.Equal(t, maxAttempts, fake.calls)
}

func TestGateway_Call_NonTransientErrorNeverRetries(t *testing.T) {
	fake := &fakeInvoker{errs: []error{apperrors.NewGroundingFailureError("entity-1", "low confidence")}}
	g := newTestGateway(t, fake)

	_, err := g.Call(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "x"},
		Target:       TargetGemini,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGrounding))
	assert.Equal(t, 1, fake.calls)
}

func TestGateway_CallStructured_UnmarshalsResult(t *testing.T) {
	fake := &fakeInvoker{responses: []string{`{"count":3}`}}
	g := newTestGateway(t, fake)

	var out struct {
		Count int `json:"count"`
	}
	err := g.CallStructured(context.Background(), CallRequest{
		TemplateName: "extract",
		Variables:    map[string]any{"document_text": "x"},
		Target:       TargetGemini,
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
}
