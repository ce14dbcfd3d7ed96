package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/elixirtrials/elixirtrials/ent"
)

// WorkerPool owns a set of Workers sharing one handler registry and one
// Redis-backed debounce guard.
type WorkerPool struct {
	client   *ent.Client
	config   *Config
	handlers map[string]Handler
	debounce *debouncer

	workers  []*Worker
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// NewWorkerPool builds a pool over client. rdb may be nil to disable the
// cross-process debounce and rely solely on the database row lock.
func NewWorkerPool(client *ent.Client, cfg *Config, rdb *redis.Client) *WorkerPool {
	return &WorkerPool{
		client:   client,
		config:   cfg,
		handlers: make(map[string]Handler),
		debounce: newDebouncer(rdb, cfg.PollInterval),
	}
}

// RegisterHandler binds a handler to an event_type. Must be called before
// Start; registering after Start is not safe for concurrent workers.
func (p *WorkerPool) RegisterHandler(eventType string, handler Handler) {
	p.handlers[eventType] = handler
}

// Start spawns WorkerCount poll goroutines. Safe to call once; subsequent
// calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	slog.Info("starting outbox worker pool", "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		worker := NewWorker(fmt.Sprintf("outbox-worker-%d", i), p.client, p.config, p.handlers, p.debounce)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
}

// Stop signals all workers to stop and waits for them to finish their
// current claim before returning.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		for _, worker := range p.workers {
			worker.Stop()
		}
	})
}

// Health reports aggregate pool health for the /health endpoint.
func (p *WorkerPool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, worker := range p.workers {
		h := worker.Health()
		stats[i] = h
		if h.Status == WorkerStatusWorking {
			active++
		}
	}
	return PoolHealth{
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		WorkerStats:   stats,
	}
}

// PoolHealth summarizes worker pool health.
type PoolHealth struct {
	TotalWorkers  int            `json:"total_workers"`
	ActiveWorkers int            `json:"active_workers"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}
