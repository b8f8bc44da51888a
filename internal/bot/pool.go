package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mkch/paybot/pkg/logger"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	ctx context.Context
	ev  Event
}

// Pool fans events out to a fixed set of workers. Events of one conversation
// always land on the same worker and are handled in arrival order.
type Pool struct {
	handler Handler
	logg    *logger.Logger
	shards  []chan job

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewPool(handler Handler, workers, queueSize int, logg *logger.Logger) (*Pool, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive")
	}
	if queueSize < 0 {
		return nil, fmt.Errorf("queue size must be non-negative")
	}
	shards := make([]chan job, workers)
	for i := range shards {
		shards[i] = make(chan job, queueSize)
	}
	return &Pool{handler: handler, logg: logg, shards: shards}, nil
}

// Start launches the workers. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i, ch := range p.shards {
		p.wg.Add(1)
		go p.work(i, ch)
	}
}

// Submit queues ev on its conversation's worker. It blocks while that worker's
// queue is full. The handler runs detached from ctx cancellation so an event
// that was accepted is processed to completion during shutdown.
func (p *Pool) Submit(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.shards[p.shardFor(ev.ConversationID)] <- job{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, ch := range p.shards {
			close(ch)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}

func (p *Pool) shardFor(conversationID int64) int {
	return int(uint64(conversationID) % uint64(len(p.shards)))
}

func (p *Pool) work(shard int, jobs <-chan job) {
	defer p.wg.Done()
	for j := range jobs {
		if err := p.handler.Handle(j.ctx, j.ev); err != nil {
			ctx := p.logg.WithFields(j.ctx, map[string]any{
				"worker":     shard,
				"event_kind": j.ev.Kind.String(),
				"chat_id":    j.ev.ConversationID,
			})
			p.logg.Error(ctx, "event handling failed", err)
		}
	}
}
