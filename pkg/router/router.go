// Package router dispatches an extracted entity to the ordered list of
// vocabulary adapters its entity_type is configured to use.
package router

import (
	"context"

	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/terminology"
)

const defaultMaxCandidates = 10

// Entity carries the minimum terminology needs to route an extracted
// clinical entity: its type (drives the routing table lookup) and the
// search term to query each vocabulary with.
type Entity struct {
	EntityType string
	SearchTerm string
}

// Router dispatches entities to the configured vocabulary systems in order
// and caps the combined candidate list.
type Router struct {
	routes     *config.TerminologyRoutingRegistry
	terminology *terminology.Client
}

// New builds a Router over the given routing table and terminology client.
func New(routes *config.TerminologyRoutingRegistry, terminologyClient *terminology.Client) *Router {
	return &Router{routes: routes, terminology: terminologyClient}
}

// Route returns the concatenated, capped candidate list for entity. A
// consent (or any Skip-marked) entity_type yields no candidates without
// calling any adapter. An entity_type absent from the routing table is
// treated the same as Skip: the entity proceeds ungrounded rather than
// failing the node.
func (r *Router) Route(ctx context.Context, entity Entity) []terminology.Candidate {
	route, err := r.routes.Get(entity.EntityType)
	if err != nil {
		return nil
	}
	if route.Skip {
		return nil
	}

	maxCandidates := route.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}

	var candidates []terminology.Candidate
	for _, system := range route.Vocabularies {
		found := r.terminology.Search(ctx, system, entity.SearchTerm)
		candidates = append(candidates, found...)
		if len(candidates) >= maxCandidates {
			break
		}
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}
