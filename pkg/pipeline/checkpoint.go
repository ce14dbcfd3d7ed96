package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/pipelinecheckpoint"
)

// CheckpointStore reads and writes PipelineCheckpoint rows keyed by the
// unique (thread_id, node_name) pair, where thread_id is always the
// protocol_id — the naming mirrors the agent orchestrator's thread/run
// checkpointing vocabulary this package's resume logic is grounded on.
type CheckpointStore struct {
	client *ent.Client
}

// NewCheckpointStore wraps an ent client for checkpoint reads/writes.
func NewCheckpointStore(client *ent.Client) *CheckpointStore {
	return &CheckpointStore{client: client}
}

// Get returns the checkpoint row for (protocolID, node), or nil if the
// node has never run for this protocol.
func (s *CheckpointStore) Get(ctx context.Context, protocolID string, node NodeName) (*ent.PipelineCheckpoint, error) {
	row, err := s.client.PipelineCheckpoint.Query().
		Where(
			pipelinecheckpoint.ThreadID(protocolID),
			pipelinecheckpoint.NodeNameEQ(string(node)),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query checkpoint %s/%s: %w", protocolID, node, err)
	}
	return row, nil
}

// MarkCompleted records node's successful output state, creating the
// checkpoint row on first run or updating it on a re-run (ground is
// re-run every resume, so it is the one node whose checkpoint is
// routinely overwritten rather than only created once).
func (s *CheckpointStore) MarkCompleted(ctx context.Context, protocolID string, node NodeName, state State) error {
	now := time.Now()
	existing, err := s.Get(ctx, protocolID, node)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := s.client.PipelineCheckpoint.Create().
			SetID(uuid.NewString()).
			SetThreadID(protocolID).
			SetProtocolID(protocolID).
			SetNodeName(string(node)).
			SetStatus(pipelinecheckpoint.StatusCompleted).
			SetState(map[string]interface{}(state)).
			SetCompletedAt(now).
			Save(ctx)
		if err != nil {
			return fmt.Errorf("create checkpoint %s/%s: %w", protocolID, node, err)
		}
		return nil
	}

	_, err = existing.Update().
		SetStatus(pipelinecheckpoint.StatusCompleted).
		SetState(map[string]interface{}(state)).
		SetCompletedAt(now).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("update checkpoint %s/%s: %w", protocolID, node, err)
	}
	return nil
}

// ClearAll deletes every checkpoint row for protocolID, so a subsequent
// Runner.Run treats every node as never having run. Re-extraction is the
// only caller: it needs a genuinely fresh pass over ingest..ordinal_resolve
// rather than the crash-resume behavior runNode otherwise gives a second
// Run call for the same protocol_id.
func (s *CheckpointStore) ClearAll(ctx context.Context, protocolID string) error {
	_, err := s.client.PipelineCheckpoint.Delete().
		Where(pipelinecheckpoint.ThreadID(protocolID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear checkpoints for %s: %w", protocolID, err)
	}
	return nil
}

// MarkFailed records that node failed for protocolID, with detail captured
// in the checkpoint's state for diagnostics. The runner separately updates
// Protocol.status/error_reason; this call only affects resume behavior.
func (s *CheckpointStore) MarkFailed(ctx context.Context, protocolID string, node NodeName, detail string) error {
	existing, err := s.Get(ctx, protocolID, node)
	if err != nil {
		return err
	}

	state := map[string]interface{}{"error": detail}

	if existing == nil {
		_, err := s.client.PipelineCheckpoint.Create().
			SetID(uuid.NewString()).
			SetThreadID(protocolID).
			SetProtocolID(protocolID).
			SetNodeName(string(node)).
			SetStatus(pipelinecheckpoint.StatusFailed).
			SetState(state).
			Save(ctx)
		if err != nil {
			return fmt.Errorf("create failed checkpoint %s/%s: %w", protocolID, node, err)
		}
		return nil
	}

	_, err = existing.Update().
		SetStatus(pipelinecheckpoint.StatusFailed).
		SetState(state).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("update failed checkpoint %s/%s: %w", protocolID, node, err)
	}
	return nil
}
