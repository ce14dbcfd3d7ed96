// Package terminology provides uniform lookup across the six clinical
// vocabularies used by the grounding pipeline: UMLS, SNOMED CT, ICD-10-CM,
// RxNorm, LOINC, and HPO. Each vocabulary is fronted by its own adapter;
// Client dispatches by name and absorbs all adapter failures so that
// grounding remains best-effort.
package terminology

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

// Client is the single entry point callers use to search a named
// vocabulary. It is safe for concurrent use.
type Client struct {
	adapters map[config.VocabularySource]Adapter
	cache    *ttlLRUCache
	logger   *slog.Logger
}

// ClientOption customizes Client construction; used by tests to inject fakes.
type ClientOption func(*Client)

// WithAdapter overrides (or adds) the adapter registered for a vocabulary.
func WithAdapter(system config.VocabularySource, adapter Adapter) ClientOption {
	return func(c *Client) {
		c.adapters[system] = adapter
	}
}

// WithCache overrides the TTL/LRU cache parameters.
func WithCache(ttl time.Duration, capacity int) ClientOption {
	return func(c *Client) {
		c.cache = newTTLLRUCache(ttl, capacity)
	}
}

// NewClient builds a Client with the six built-in adapters, each configured
// from environment variables. Adapter credentials are optional: an adapter
// with no credentials still attempts anonymous calls where the upstream
// service allows it (RxNorm, HPO, ICD-10-CM, LOINC's public ValueSet).
func NewClient(opts ...ClientOption) *Client {
	umlsClient := newHTTPClient(os.Getenv("UMLS_API_KEY"), defaultRequestTimeout)
	plainClient := newHTTPClient("", defaultRequestTimeout)

	c := &Client{
		adapters: map[config.VocabularySource]Adapter{
			config.VocabularySourceUMLS:   newUMLSAdapter(os.Getenv("UMLS_API_KEY"), umlsClient),
			config.VocabularySourceSNOMED: newSNOMEDAdapter(plainClient),
			config.VocabularySourceICD10:  newICD10Adapter(plainClient),
			config.VocabularySourceRxNorm: newRxNormAdapter(plainClient),
			config.VocabularySourceLOINC:  newLOINCAdapter(os.Getenv("LOINC_USERNAME"), os.Getenv("LOINC_PASSWORD"), plainClient),
			config.VocabularySourceHPO:    newHPOAdapter(plainClient),
		},
		cache:  newTTLLRUCache(defaultCacheTTL, defaultCacheCapacity),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search looks up candidates for query in the named vocabulary. Per
// spec.md §4.1 failure semantics, it never returns an error: an unknown
// system or an adapter failure is logged and yields an empty result so
// grounding degrades to lower confidence rather than aborting.
func (c *Client) Search(ctx context.Context, system config.VocabularySource, query string) []Candidate {
	if cached, ok := c.cache.get(string(system), query); ok {
		return cached
	}

	adapter, ok := c.adapters[system]
	if !ok {
		c.logger.WarnContext(ctx, "terminology search against unknown vocabulary system",
			"system", system, "query", query)
		return nil
	}

	candidates, err := adapter.Search(ctx, query)
	if err != nil {
		c.logger.WarnContext(ctx, "terminology adapter search failed",
			"system", system, "query", query, "error", err)
		return nil
	}

	c.cache.set(string(system), query, candidates)
	return candidates
}

// CacheLen reports the number of live cache entries, for health/metrics reporting.
func (c *Client) CacheLen() int {
	return c.cache.len()
}
