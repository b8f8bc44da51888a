package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mkch/paybot/pkg/logger"
)

// SessionExpirer drops purchase sessions idle for longer than ttl.
type SessionExpirer interface {
	Expire(ttl time.Duration) int
}

// Janitor periodically expires abandoned purchase sessions.
type Janitor struct {
	sessions SessionExpirer
	logg     *logger.Logger
	ttl      time.Duration
	interval time.Duration
}

func NewJanitor(sessions SessionExpirer, ttl time.Duration, logg *logger.Logger) (*Janitor, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Janitor{sessions: sessions, logg: logg, ttl: ttl, interval: interval}, nil
}

// Run sweeps on every tick until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logg.Info(ctx, "session janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) int {
	removed := j.sessions.Expire(j.ttl)
	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired_sessions", removed), "expired idle purchase sessions")
	}
	return removed
}
