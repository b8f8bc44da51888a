package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkch/paybot/pkg/redis"
)

// Guard marks payment charge ids as processed. CheckAndMark reports true when
// the id was already seen.
type Guard interface {
	CheckAndMark(ctx context.Context, chargeID string) (bool, error)
}

// RedisGuard dedupes confirmations across restarts and replicas.
type RedisGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewRedisGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*RedisGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &RedisGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

func (g *RedisGuard) CheckAndMark(ctx context.Context, chargeID string) (bool, error) {
	if chargeID == "" {
		return false, errors.New("charge id is required")
	}
	key := g.store.IdempotencyKey(g.scope, chargeID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// MemoryGuard is the single-process fallback used when Redis is not configured.
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) CheckAndMark(_ context.Context, chargeID string) (bool, error) {
	if chargeID == "" {
		return false, errors.New("charge id is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.ttl > 0 {
		for id, at := range g.seen {
			if now.Sub(at) > g.ttl {
				delete(g.seen, id)
			}
		}
	}
	if _, ok := g.seen[chargeID]; ok {
		return true, nil
	}
	g.seen[chargeID] = now
	return false, nil
}
