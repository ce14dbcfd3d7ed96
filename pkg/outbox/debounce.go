package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// debouncer guards against two outbox rows for the same protocol_id being
// processed concurrently by different workers. It is advisory on top of,
// never a replacement for, the authoritative FOR UPDATE SKIP LOCKED row
// claim: a worker that loses the debounce simply requeues its event and
// tries another, it never assumes the lock implies correctness by itself.
type debouncer struct {
	rdb *redis.Client
	ttl time.Duration
}

// newDebouncer wraps an existing redis client. rdb may be nil, in which case
// acquire always succeeds (debounce disabled, relying solely on the row
// lock) — useful for tests and single-worker deployments.
func newDebouncer(rdb *redis.Client, ttl time.Duration) *debouncer {
	return &debouncer{rdb: rdb, ttl: ttl}
}

func inflightKey(protocolID string) string {
	return fmt.Sprintf("protocol:%s:inflight", protocolID)
}

// acquire attempts to take the advisory lock for protocolID. It returns
// ErrProtocolInFlight if another worker currently holds it.
func (d *debouncer) acquire(ctx context.Context, protocolID string) error {
	if d.rdb == nil {
		return nil
	}

	ok, err := d.rdb.SetNX(ctx, inflightKey(protocolID), "1", d.ttl).Result()
	if err != nil {
		// Redis being unreachable must never block pipeline progress; the
		// row lock is still the authoritative safety mechanism.
		return nil
	}
	if !ok {
		return ErrProtocolInFlight
	}
	return nil
}

// release drops the advisory lock early once an event has been delivered or
// permanently failed, instead of waiting out the full TTL.
func (d *debouncer) release(ctx context.Context, protocolID string) {
	if d.rdb == nil {
		return
	}
	d.rdb.Del(ctx, inflightKey(protocolID))
}
