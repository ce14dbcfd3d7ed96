// Package pipeline runs one protocol through the seven-node ingestion,
// extraction, grounding, and structuring state machine described for the
// PipelineRunner: ingest, extract, parse, ground, persist, structure,
// ordinal_resolve. Every node checkpoints its output, and every node but
// ground is resumed from its checkpoint, so a process restart resumes from
// the last completed node instead of re-running the whole pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/database"
	"github.com/elixirtrials/elixirtrials/pkg/events"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/metrics"
	"github.com/elixirtrials/elixirtrials/pkg/omop"
	"github.com/elixirtrials/elixirtrials/pkg/router"
	"github.com/elixirtrials/elixirtrials/pkg/storage"
)

// NodeName identifies one of the seven pipeline stages. It is also the
// value stored in PipelineCheckpoint.node_name and appended to Protocol
// status (e.g. "ground" + "_failed").
type NodeName string

const (
	NodeIngest         NodeName = "ingest"
	NodeExtract        NodeName = "extract"
	NodeParse          NodeName = "parse"
	NodeGround         NodeName = "ground"
	NodePersist        NodeName = "persist"
	NodeStructure      NodeName = "structure"
	NodeOrdinalResolve NodeName = "ordinal_resolve"
)

// Order is the fixed sequence the runner executes nodes in for one protocol.
var Order = []NodeName{
	NodeIngest, NodeExtract, NodeParse, NodeGround, NodePersist, NodeStructure, NodeOrdinalResolve,
}

// Deps bundles every external dependency a node function may need. A single
// struct (rather than an interface per node) keeps each node file's
// signature uniform and keeps wiring in one place (the runner constructor).
type Deps struct {
	Client  *database.Client
	Storage storage.Adapter
	Gateway *llmgateway.Gateway
	Router  *router.Router
	OMOP    *omop.Mapper

	OrdinalScales *config.OrdinalScaleRegistry
	UnitMappings  *config.UnitMappingRegistry

	Events  *events.EventPublisher
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// State is the loosely-typed bag a node receives from (and returns to) the
// checkpoint store. Each node knows the shape it expects from its
// predecessor and documents it at the top of its Run function; ground's
// returned state is never read back by the runner since ground always
// re-executes on resume.
type State map[string]any

// NodeFunc is the shape every pipeline node implements. ctx carries the
// per-run soft timeout; protocolID names the Protocol row being processed.
// A returned error is always an apperrors.NodeFailureError (or wraps one) —
// see apperrors.NewNodeFailureError, which the runner uses to decide the
// Protocol.status and checkpoint outcome.
type NodeFunc func(ctx context.Context, deps *Deps, protocolID string, in State) (State, error)

// fieldMapping is one entity/relation/value/unit join-ready export row held
// in Criterion.conditions.field_mappings. persist creates one entry per
// non-skipped entity with relation/value left unset; structure fills in
// relation/value/units once it has decomposed the criterion.
type fieldMapping struct {
	Entity          string `json:"entity"`
	EntityConceptID int64  `json:"entity_concept_id,omitempty"`
	Relation        string `json:"relation,omitempty"`
	Value           any    `json:"value,omitempty"`
	UnitText        string `json:"unit_text,omitempty"`
	UnitConceptID   int64  `json:"unit_concept_id,omitempty"`
	ValueConceptID  int64  `json:"value_concept_id,omitempty"`
}

// entClient is the narrow accessor nodes use instead of importing
// database.Client directly in every file.
func entClient(deps *Deps) *ent.Client {
	return deps.Client.Client
}

// decodeStateValue re-decodes one State entry into a typed value. A
// checkpoint round-tripped through the database loses Go struct types
// (PipelineCheckpoint.state is a generic JSON column, so a resumed State
// holds map[string]any/[]any rather than the structs a node returned
// before a restart); this normalizes both the freshly-produced and the
// resumed-from-checkpoint shapes through one json.Marshal/Unmarshal pass.
func decodeStateValue[T any](in State, key string) (T, error) {
	var zero T
	raw, ok := in[key]
	if !ok {
		return zero, fmt.Errorf("state missing key %q", key)
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return zero, fmt.Errorf("re-marshal state key %q: %w", key, err)
	}

	var out T
	if err := json.Unmarshal(buf, &out); err != nil {
		return zero, fmt.Errorf("decode state key %q: %w", key, err)
	}
	return out, nil
}
