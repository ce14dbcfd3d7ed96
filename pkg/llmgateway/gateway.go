// Package llmgateway is the single surface pipeline nodes use to call an
// LLM: render a prompt template, enforce structured output, retry
// transient failures, and fail fast via a per-target circuit breaker.
package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const (
	maxAttempts          = 3
	retryInitialInterval = 1 * time.Second
	breakerFailThreshold = 3
	breakerOpenTimeout   = 60 * time.Second
)

// Gateway is the production implementation of the single-call LLM surface.
type Gateway struct {
	providers *config.LLMProviderRegistry
	templates *TemplateStore

	mu        sync.Mutex
	invokers  map[Target]modelInvoker
	breakers  map[Target]*gobreaker.CircuitBreaker

	newInvoker func(ctx context.Context, provider *config.LLMProviderConfig) (modelInvoker, error)

	logger *slog.Logger
}

// New builds a Gateway over the LLM provider registry and a loaded template
// store. Invokers are created lazily per target on first use.
func New(providers *config.LLMProviderRegistry, templates *TemplateStore) *Gateway {
	return &Gateway{
		providers: providers,
		templates: templates,
		invokers:  make(map[Target]modelInvoker),
		breakers:  make(map[Target]*gobreaker.CircuitBreaker),
		newInvoker: func(ctx context.Context, provider *config.LLMProviderConfig) (modelInvoker, error) {
			return newGenAIInvoker(ctx, provider)
		},
		logger: slog.Default(),
	}
}

// Call renders the request's template, invokes the target model with
// structured-output enforcement, and retries transient failures under a
// per-target circuit breaker.
func (g *Gateway) Call(ctx context.Context, req CallRequest) (*CallResult, error) {
	providerCfg, err := g.resolveProvider(req.Target)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = providerCfg.Model
	}

	rawTemplate, err := g.templates.Get(req.TemplateName)
	if err != nil {
		return nil, apperrors.NewValidationError("template_name", err.Error())
	}

	prompt, err := renderTemplate(req.TemplateName, rawTemplate, req.Variables)
	if err != nil {
		return nil, apperrors.NewValidationError("template_variables", err.Error())
	}

	invoker, err := g.invokerFor(ctx, req.Target, providerCfg)
	if err != nil {
		return nil, err
	}

	breaker := g.breakerFor(req.Target)

	var text string
	operation := func() (string, error) {
		result, err := breaker.Execute(func() (interface{}, error) {
			return invoker.Invoke(ctx, model, prompt, req.ResponseSchema, req.Temperature)
		})
		if err != nil {
			return "", err
		}
		return result.(string), nil
	}

	text, err = g.callWithRetry(ctx, req.Target, operation)
	if err != nil {
		return nil, err
	}

	return &CallResult{
		RawText: text,
		JSON:    []byte(text),
		Target:  req.Target,
		Model:   model,
	}, nil
}

// CallStructured is a convenience wrapper around Call that unmarshals the
// response JSON directly into out.
func (g *Gateway) CallStructured(ctx context.Context, req CallRequest, out any) error {
	result, err := g.Call(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result.JSON, out); err != nil {
		return fmt.Errorf("unmarshal structured response: %w", err)
	}
	return nil
}

func (g *Gateway) resolveProvider(target Target) (*config.LLMProviderConfig, error) {
	name, ok := providerName[target]
	if !ok {
		return nil, apperrors.NewValidationError("target", fmt.Sprintf("unknown LLM target: %s", target))
	}
	return g.providers.Get(name)
}

func (g *Gateway) invokerFor(ctx context.Context, target Target, provider *config.LLMProviderConfig) (modelInvoker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if invoker, ok := g.invokers[target]; ok {
		return invoker, nil
	}

	invoker, err := g.newInvoker(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("build invoker for target %s: %w", target, err)
	}
	g.invokers[target] = invoker
	return invoker, nil
}

func (g *Gateway) breakerFor(target Target) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breaker, ok := g.breakers[target]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(target),
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("LLM circuit breaker state change", "target", name, "from", from, "to", to)
		},
	})
	g.breakers[target] = breaker
	return breaker
}

// callWithRetry retries operation up to maxAttempts times with exponential
// backoff (1s, 2s, 4s), retrying only on apperrors.ErrTransientUpstream or
// an open circuit breaker. Schema-validation and other non-transient
// failures surface immediately.
func (g *Gateway) callWithRetry(ctx context.Context, target Target, operation func() (string, error)) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // bounded by attempt count below, not elapsed time

	var result string
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++
		out, err := operation()
		if err == nil {
			result = out
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return apperrors.NewServiceUnavailableError(string(target), "circuit breaker open", breakerOpenTimeout)
		}

		if errors.Is(err, apperrors.ErrTransientUpstream) {
			if attempt >= maxAttempts {
				return backoff.Permanent(err)
			}
			return err
		}

		// Non-transient failure (schema validation, bad request, ...): never retry.
		return backoff.Permanent(err)
	}, backoff.WithMaxRetries(bo, maxAttempts-1))

	if err != nil {
		var svcUnavailable *apperrors.ServiceUnavailableError
		if errors.As(err, &svcUnavailable) {
			return "", err
		}
		return "", err
	}
	return result, nil
}
