package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/pipelinecheckpoint"
	"github.com/elixirtrials/elixirtrials/ent/protocol"
	"github.com/elixirtrials/elixirtrials/pkg/apperrors"
	"github.com/elixirtrials/elixirtrials/pkg/events"
)

// DefaultRunTimeout is the soft per-pipeline-run budget. Exceeding it marks
// the protocol pipeline_failed with error_reason "timeout" rather than
// leaving a run wedged indefinitely on a stuck node.
const DefaultRunTimeout = 20 * time.Minute

// statusForNode is the Protocol.status the runner sets when a node is about
// to start. Nodes are grouped into four visible phases (extracting,
// grounding, structuring, plus the terminal pending_review that Run sets
// once ordinal_resolve completes) since Protocol.status has no per-node granularity of
// its own; stage.status events carry the finer per-node detail.
var statusForNode = map[NodeName]protocol.Status{
	NodeIngest:         protocol.StatusExtracting,
	NodeExtract:        protocol.StatusExtracting,
	NodeParse:          protocol.StatusGrounding,
	NodeGround:         protocol.StatusGrounding,
	NodePersist:        protocol.StatusStructuring,
	NodeStructure:      protocol.StatusStructuring,
	NodeOrdinalResolve: protocol.StatusStructuring,
}

// failedStatusForNode maps a node to the Protocol.status set when that node
// exhausts retries and the run cannot continue. ground absorbs grounding
// failures per entity and has no entry here; its remaining errors (state it
// cannot decode, a cancelled context) fall back to pipeline_failed.
var failedStatusForNode = map[NodeName]protocol.Status{
	NodeIngest:         protocol.StatusExtractionFailed,
	NodeExtract:        protocol.StatusExtractionFailed,
	NodeParse:          protocol.StatusGroundingFailed,
	NodePersist:        protocol.StatusGroundingFailed,
	NodeStructure:      protocol.StatusPipelineFailed,
	NodeOrdinalResolve: protocol.StatusPipelineFailed,
}

// Runner executes the fixed node sequence for one protocol, checkpointing
// every node and resuming every node but ground from its checkpoint,
// publishing a stage.status event around each node,
// and translating node failures into Protocol.status transitions.
type Runner struct {
	deps        *Deps
	checkpoints *CheckpointStore
	nodes       map[NodeName]NodeFunc
	timeout     time.Duration
}

// NewRunner builds a Runner with the production node implementations wired
// in Order. Tests construct a Runner directly with a custom nodes map via
// newRunnerWithNodes instead of going through this constructor.
func NewRunner(deps *Deps) *Runner {
	return &Runner{
		deps:        deps,
		checkpoints: NewCheckpointStore(entClient(deps)),
		timeout:     DefaultRunTimeout,
		nodes: map[NodeName]NodeFunc{
			NodeIngest:         RunIngest,
			NodeExtract:        RunExtract,
			NodeParse:          RunParse,
			NodeGround:         RunGround,
			NodePersist:        RunPersist,
			NodeStructure:      RunStructure,
			NodeOrdinalResolve: RunOrdinalResolve,
		},
	}
}

func newRunnerWithNodes(deps *Deps, nodes map[NodeName]NodeFunc) *Runner {
	return &Runner{
		deps:        deps,
		checkpoints: NewCheckpointStore(entClient(deps)),
		timeout:     DefaultRunTimeout,
		nodes:       nodes,
	}
}

// Run drives protocolID through every node in Order, resuming from the
// last completed checkpoint. It returns nil once ordinal_resolve completes,
// or the first node failure (already reflected in Protocol.status) it
// cannot recover from.
func (r *Runner) Run(ctx context.Context, protocolID string) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var state State

	for _, node := range Order {
		nodeState, _, err := r.runNode(runCtx, protocolID, node, state)
		if err != nil {
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return r.failTimeout(ctx, protocolID, node)
			}
			return err
		}
		state = nodeState
	}

	if err := r.setProtocolStatus(ctx, protocolID, protocol.StatusPendingReview, ""); err != nil {
		r.logger().Error("failed to set pending_review protocol status", "protocol_id", protocolID, "error", err)
		return err
	}
	return nil
}

// runNode resumes node from its checkpoint when one exists and completed
// (ground is exempt — it always re-executes), otherwise runs it fresh.
func (r *Runner) runNode(ctx context.Context, protocolID string, node NodeName, in State) (State, bool, error) {
	log := r.logger().With("protocol_id", protocolID, "node", string(node))

	if node != NodeGround {
		checkpoint, err := r.checkpoints.Get(ctx, protocolID, node)
		if err != nil {
			return nil, false, fmt.Errorf("load checkpoint: %w", err)
		}
		if checkpoint != nil && checkpoint.Status == pipelinecheckpoint.StatusCompleted {
			log.Info("resuming from completed checkpoint")
			return State(checkpoint.State), true, nil
		}
	}

	if err := r.setProtocolStatus(ctx, protocolID, statusForNode[node], ""); err != nil {
		log.Warn("failed to update protocol status before node", "error", err)
	}
	r.publishStageStatus(ctx, protocolID, node, events.StageStatusStarted, "")

	fn, ok := r.nodes[node]
	if !ok {
		return nil, false, fmt.Errorf("no implementation registered for node %q", node)
	}

	start := time.Now()
	out, err := fn(ctx, r.deps, protocolID, in)
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObservePipelineNodeDuration(string(node), time.Since(start).Seconds())
	}
	if err != nil {
		return r.handleNodeFailure(ctx, protocolID, node, err)
	}

	if markErr := r.checkpoints.MarkCompleted(ctx, protocolID, node, out); markErr != nil {
		log.Error("failed to persist checkpoint", "error", markErr)
	}
	r.publishStageStatus(ctx, protocolID, node, events.StageStatusCompleted, "")

	return out, false, nil
}

func (r *Runner) handleNodeFailure(ctx context.Context, protocolID string, node NodeName, nodeErr error) (State, bool, error) {
	log := r.logger().With("protocol_id", protocolID, "node", string(node))

	detail := nodeErr.Error()
	if markErr := r.checkpoints.MarkFailed(ctx, protocolID, node, detail); markErr != nil {
		log.Error("failed to persist failed checkpoint", "error", markErr)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObservePipelineNodeFailure(string(node))
	}
	r.publishStageStatus(ctx, protocolID, node, events.StageStatusFailed, detail)

	failStatus, ok := failedStatusForNode[node]
	if !ok {
		failStatus = protocol.StatusPipelineFailed
	}
	if err := r.setProtocolStatus(ctx, protocolID, failStatus, detail); err != nil {
		log.Error("failed to set failed protocol status", "error", err)
	}

	return nil, false, apperrors.NewNodeFailureError(string(node), nodeErr)
}

func (r *Runner) failTimeout(ctx context.Context, protocolID string, node NodeName) error {
	log := r.logger().With("protocol_id", protocolID, "node", string(node))
	detail := "pipeline run exceeded soft timeout"

	if err := r.checkpoints.MarkFailed(ctx, protocolID, node, detail); err != nil {
		log.Error("failed to persist timeout checkpoint", "error", err)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.ObservePipelineNodeFailure(string(node))
	}
	r.publishStageStatus(ctx, protocolID, node, events.StageStatusFailed, detail)
	if err := r.setProtocolStatus(ctx, protocolID, protocol.StatusPipelineFailed, "timeout"); err != nil {
		log.Error("failed to set timeout protocol status", "error", err)
	}

	return apperrors.NewNodeFailureError(string(node), fmt.Errorf("%s: %w", detail, context.DeadlineExceeded))
}

func (r *Runner) setProtocolStatus(ctx context.Context, protocolID string, status protocol.Status, errorReason string) error {
	update := entClient(r.deps).Protocol.UpdateOneID(protocolID).SetStatus(status)
	if errorReason != "" {
		update = update.SetErrorReason(errorReason)
	}
	_, err := update.Save(ctx)
	if err != nil && ent.IsNotFound(err) {
		return nil
	}
	return err
}

func (r *Runner) publishStageStatus(ctx context.Context, protocolID string, node NodeName, status, detail string) {
	if r.deps.Events == nil {
		return
	}
	err := r.deps.Events.PublishStageStatus(ctx, protocolID, events.StageStatusPayload{
		Type:       events.EventTypeStageStatus,
		ProtocolID: protocolID,
		Node:       string(node),
		Status:     status,
		Detail:     detail,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		r.logger().Warn("failed to publish stage status", "protocol_id", protocolID, "node", string(node), "error", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.deps.Logger != nil {
		return r.deps.Logger
	}
	return slog.Default()
}
