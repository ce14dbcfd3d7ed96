package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RegisterHandler_StoresByEventType(t *testing.T) {
	pool := NewWorkerPool(nil, testConfig(), nil)

	var received Event
	pool.RegisterHandler(EventProtocolUploaded, HandlerFunc(func(ctx context.Context, event Event) error {
		received = event
		return nil
	}))

	handler, ok := pool.handlers[EventProtocolUploaded]
	assert.True(t, ok)

	_ = handler.Handle(context.Background(), Event{ProtocolID: "proto-1"})
	assert.Equal(t, "proto-1", received.ProtocolID)
}

func TestWorkerPool_Health_EmptyBeforeStart(t *testing.T) {
	pool := NewWorkerPool(nil, testConfig(), nil)

	health := pool.Health()
	assert.Equal(t, 0, health.TotalWorkers)
	assert.Equal(t, 0, health.ActiveWorkers)
	assert.Empty(t, health.WorkerStats)
}

func TestWorkerPool_Health_AggregatesWorkerStats(t *testing.T) {
	pool := NewWorkerPool(nil, testConfig(), nil)
	w1 := NewWorker("w1", nil, testConfig(), pool.handlers, pool.debounce)
	w2 := NewWorker("w2", nil, testConfig(), pool.handlers, pool.debounce)
	w2.setStatus(WorkerStatusWorking)
	pool.workers = []*Worker{w1, w2}

	health := pool.Health()
	assert.Equal(t, 2, health.TotalWorkers)
	assert.Equal(t, 1, health.ActiveWorkers)
}
