package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"entgo.io/ent/dialect/sql"

	"github.com/elixirtrials/elixirtrials/ent"
	"github.com/elixirtrials/elixirtrials/ent/outboxevent"
)

// WorkerStatus reports what a worker is currently doing, mirrored into
// health output.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker polls for claimable outbox rows and dispatches them to the
// registered handler for their event_type.
type Worker struct {
	id       string
	client   *ent.Client
	config   *Config
	debounce *debouncer
	handlers map[string]Handler

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu              sync.RWMutex
	status          WorkerStatus
	eventsProcessed int
	lastActivity    time.Time
}

// NewWorker builds a worker over client, dispatching claimed events to
// handlers keyed by event_type. Events for an unregistered type are marked
// failed immediately so they do not silently accumulate as pending.
func NewWorker(id string, client *ent.Client, cfg *Config, handlers map[string]Handler, debounce *debouncer) *Worker {
	return &Worker{
		id:           id,
		client:       client,
		config:       cfg,
		handlers:     handlers,
		debounce:     debounce,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the poll loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the current iteration to
// finish. Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health reports the worker's current status for the pool's health output.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:              w.id,
		Status:          w.status,
		EventsProcessed: w.eventsProcessed,
		LastActivity:    w.lastActivity,
	}
}

func (w *Worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.lastActivity = time.Now()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("outbox worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("outbox worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, outbox worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoEventsAvailable) || errors.Is(err, ErrProtocolInFlight) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing outbox event", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollInterval returns the base poll interval plus symmetric jitter, the
// same pattern the claim-loop worker pool uses to avoid every worker in a
// replica set waking on the same tick.
func (w *Worker) pollInterval() time.Duration {
	if w.config.PollIntervalJitter <= 0 {
		return w.config.PollInterval
	}
	jitter := time.Duration(rand.Int64N(int64(2*w.config.PollIntervalJitter))) - w.config.PollIntervalJitter
	return w.config.PollInterval + jitter
}

// pollAndProcess claims the next eligible event, acquires the per-protocol
// debounce lock, dispatches it to its handler, and records the outcome.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	row, err := w.claimNextEvent(ctx)
	if err != nil {
		return err
	}

	protocolID, err := extractProtocolID(row.Payload)
	if err != nil {
		return w.markFailed(ctx, row, fmt.Errorf("malformed payload: %w", err))
	}

	if err := w.debounce.acquire(ctx, protocolID); err != nil {
		// Another worker holds the protocol; give this row back as pending
		// without counting it as a failed attempt.
		if releaseErr := w.requeue(ctx, row); releaseErr != nil {
			slog.Error("failed to requeue debounced event", "event_id", row.ID, "error", releaseErr)
		}
		return err
	}
	defer w.debounce.release(ctx, protocolID)

	w.setStatus(WorkerStatusWorking)
	defer w.setStatus(WorkerStatusIdle)

	handler, ok := w.handlers[row.EventType]
	if !ok {
		return w.markFailed(ctx, row, fmt.Errorf("no handler registered for event_type %q", row.EventType))
	}

	event := Event{
		ID:         row.ID,
		EventType:  row.EventType,
		Payload:    mustMarshalPayload(row.Payload),
		Attempts:   row.Attempts,
		ProtocolID: protocolID,
	}

	if err := handler.Handle(ctx, event); err != nil {
		return w.markFailed(ctx, row, err)
	}

	if err := w.markDelivered(ctx, row); err != nil {
		return fmt.Errorf("mark event %s delivered: %w", row.ID, err)
	}

	w.mu.Lock()
	w.eventsProcessed++
	w.mu.Unlock()

	return nil
}

// claimNextEvent atomically claims the oldest eligible event using
// FOR UPDATE SKIP LOCKED, mirroring the session claim pattern the rest of
// the pipeline's queue infrastructure uses.
func (w *Worker) claimNextEvent(ctx context.Context) (*ent.OutboxEvent, error) {
	tx, err := w.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("start claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	row, err := tx.OutboxEvent.Query().
		Where(
			outboxevent.Or(
				outboxevent.StatusEQ(outboxevent.StatusPending),
				outboxevent.And(
					outboxevent.StatusEQ(outboxevent.StatusFailed),
					outboxevent.NextRetryAtLTE(now),
				),
			),
		).
		Order(ent.Asc(outboxevent.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoEventsAvailable
		}
		return nil, fmt.Errorf("query claimable event: %w", err)
	}

	claimed, err := row.Update().
		SetStatus(outboxevent.StatusClaimed).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim event %s: %w", row.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return claimed, nil
}

// requeue reverts a debounce-blocked claim back to pending without
// incrementing attempts, so the protocol's in-flight event is retried on
// the next tick instead of burning a retry attempt on contention.
func (w *Worker) requeue(ctx context.Context, row *ent.OutboxEvent) error {
	return w.client.OutboxEvent.UpdateOneID(row.ID).
		SetStatus(outboxevent.StatusPending).
		Exec(ctx)
}

// markDelivered marks row delivered after a handler reports success.
func (w *Worker) markDelivered(ctx context.Context, row *ent.OutboxEvent) error {
	return w.client.OutboxEvent.UpdateOneID(row.ID).
		SetStatus(outboxevent.StatusDelivered).
		Exec(ctx)
}

// markFailed records handlerErr, bumps attempts, and either schedules a
// backoff retry or moves the row to dead_letter once max_attempts is
// exhausted.
func (w *Worker) markFailed(ctx context.Context, row *ent.OutboxEvent, handlerErr error) error {
	attempts := row.Attempts + 1
	update := w.client.OutboxEvent.UpdateOneID(row.ID).
		SetAttempts(attempts).
		SetLastError(handlerErr.Error())

	if attempts >= w.config.MaxAttempts {
		update = update.SetStatus(outboxevent.StatusDeadLetter)
	} else {
		update = update.
			SetStatus(outboxevent.StatusFailed).
			SetNextRetryAt(time.Now().Add(retryBackoff(attempts)))
	}

	if err := update.Exec(ctx); err != nil {
		return fmt.Errorf("mark event %s failed: %w", row.ID, err)
	}
	return handlerErr
}

// retryBackoff returns an exponential backoff (2s, 4s, 8s, 16s, ...) capped
// at 5 minutes, keyed by attempt count.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	const cap_ = 5 * time.Minute
	if d > cap_ {
		return cap_
	}
	return d
}

func mustMarshalPayload(payload map[string]interface{}) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		// payload was already validated JSON at publish time.
		return json.RawMessage("{}")
	}
	return raw
}

// WorkerHealth reports one worker's current state.
type WorkerHealth struct {
	ID              string       `json:"id"`
	Status          WorkerStatus `json:"status"`
	EventsProcessed int          `json:"events_processed"`
	LastActivity    time.Time    `json:"last_activity"`
}
