package stats

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mkch/paybot/pkg/redis"
)

// Totals summarizes confirmed purchases.
type Totals struct {
	Purchases    int64
	UniqueBuyers int
}

// Aggregator counts confirmed purchases per buyer. There is no decrement.
type Aggregator interface {
	Increment(ctx context.Context, buyerID int64) error
	Totals(ctx context.Context) (Totals, error)
}

// MemoryAggregator keeps counts for the lifetime of the process.
type MemoryAggregator struct {
	mu     sync.Mutex
	counts map[int64]int64
}

func NewMemoryAggregator() *MemoryAggregator {
	return &MemoryAggregator{counts: make(map[int64]int64)}
}

func (m *MemoryAggregator) Increment(_ context.Context, buyerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[buyerID]++
	return nil
}

func (m *MemoryAggregator) Totals(_ context.Context) (Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out Totals
	for _, n := range m.counts {
		out.Purchases += n
	}
	out.UniqueBuyers = len(m.counts)
	return out, nil
}

const purchasesCounter = "purchases"

// RedisAggregator keeps counts in a Redis hash so they survive restarts and
// are shared between bot replicas.
type RedisAggregator struct {
	store redis.HashCounterStore
	key   string
}

func NewRedisAggregator(store redis.HashCounterStore) (*RedisAggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisAggregator{store: store, key: store.CounterKey(purchasesCounter)}, nil
}

func (r *RedisAggregator) Increment(ctx context.Context, buyerID int64) error {
	if _, err := r.store.HIncrBy(ctx, r.key, strconv.FormatInt(buyerID, 10), 1); err != nil {
		return fmt.Errorf("increment purchases for %d: %w", buyerID, err)
	}
	return nil
}

func (r *RedisAggregator) Totals(ctx context.Context) (Totals, error) {
	fields, err := r.store.HGetAll(ctx, r.key)
	if err != nil {
		return Totals{}, fmt.Errorf("read purchases: %w", err)
	}
	var out Totals
	for buyer, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("purchases for %s: %w", buyer, err)
		}
		out.Purchases += n
	}
	out.UniqueBuyers = len(fields)
	return out, nil
}
