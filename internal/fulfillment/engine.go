package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkch/paybot/internal/catalog"
	"github.com/mkch/paybot/internal/inventory"
	"github.com/mkch/paybot/internal/stats"
	"github.com/mkch/paybot/internal/texts"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/mkch/paybot/pkg/markdown"
	"github.com/mkch/paybot/pkg/metrics"
)

const defaultReplyTimeout = 15 * time.Second

// Confirmation is a successful payment reported by the provider.
type Confirmation struct {
	ItemID   string
	Amount   int
	Currency string
	BuyerID  int64
	ChatID   int64
	ChargeID string
}

// Result describes what was delivered.
type Result struct {
	ItemID    string
	Artifact  string
	FromPool  bool
	Exhausted bool
	Duplicate bool
}

// Replier is the outbound surface the engine needs.
type Replier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// DeliverySettings exposes the live auto-delivery flag.
type DeliverySettings interface {
	AutoDelivery() bool
}

// CodeDrawer pops the head of the code pool.
type CodeDrawer interface {
	Draw() (string, int, error)
}

type EngineParams struct {
	Catalog   *catalog.Catalog
	Settings  DeliverySettings
	Inventory CodeDrawer
	Stats     stats.Aggregator
	Guard     Guard
	Replier   Replier
	Logger    *logger.Logger
	Metrics   *metrics.BotMetrics

	ReplyTimeout time.Duration
}

// Engine turns a confirmed payment into exactly one reply. A draw that is
// followed by a failed reply is not rolled back.
type Engine struct {
	catalog   *catalog.Catalog
	settings  DeliverySettings
	inventory CodeDrawer
	stats     stats.Aggregator
	guard     Guard
	replier   Replier
	logg      *logger.Logger
	metrics   *metrics.BotMetrics

	replyTimeout time.Duration
}

func NewEngine(p EngineParams) (*Engine, error) {
	switch {
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case p.Settings == nil:
		return nil, fmt.Errorf("settings required")
	case p.Inventory == nil:
		return nil, fmt.Errorf("inventory required")
	case p.Stats == nil:
		return nil, fmt.Errorf("stats aggregator required")
	case p.Replier == nil:
		return nil, fmt.Errorf("replier required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	timeout := p.ReplyTimeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &Engine{
		catalog:   p.Catalog,
		settings:  p.Settings,
		inventory: p.Inventory,
		stats:     p.Stats,
		guard:     p.Guard,
		replier:   p.Replier,
		logg:      p.Logger,
		metrics:   p.Metrics,

		replyTimeout: timeout,
	}, nil
}

func (e *Engine) Fulfill(ctx context.Context, c Confirmation) (Result, error) {
	ctx = e.logg.WithFields(ctx, map[string]any{
		"item_id":   c.ItemID,
		"amount":    c.Amount,
		"currency":  c.Currency,
		"buyer_id":  c.BuyerID,
		"charge_id": c.ChargeID,
	})

	if duplicate := e.seenBefore(ctx, c.ChargeID); duplicate {
		e.logg.Warn(ctx, "duplicate payment confirmation ignored")
		return Result{ItemID: c.ItemID, Duplicate: true}, nil
	}

	item, ok := e.catalog.Get(c.ItemID)
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeInvariant, fmt.Sprintf("payment for unknown item %q", c.ItemID))
		e.logg.Critical(ctx, "payment confirmed for item missing from catalog", err)
		sendErr := e.reply(ctx, func(ctx context.Context) error {
			return e.replier.SendText(ctx, c.ChatID, texts.PaymentFailed)
		})
		if sendErr != nil {
			e.logg.Error(ctx, "failed to send payment failure reply", sendErr)
		}
		return Result{ItemID: c.ItemID}, err
	}

	if err := e.stats.Increment(ctx, c.BuyerID); err != nil {
		e.logg.Error(ctx, "failed to record purchase stats", err)
	}
	e.metrics.IncPurchase(item.ID)
	e.logg.Info(ctx, "purchase confirmed")

	result := e.artifact(ctx, item)

	var body string
	if result.Exhausted {
		body = markdown.Escape(texts.ThanksPrefix + "\n\n" + result.Artifact)
	} else {
		body = markdown.Escape(texts.ThanksPrefix) + "\n\n" + markdown.Code(result.Artifact)
	}
	err := e.reply(ctx, func(ctx context.Context) error {
		return e.replier.SendMarkdown(ctx, c.ChatID, body)
	})
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeTransport, err, "send fulfillment reply")
		e.logg.Error(e.logg.WithField(ctx, "from_pool", result.FromPool), "fulfillment reply failed after delivery decision", wrapped)
		return result, wrapped
	}
	return result, nil
}

func (e *Engine) reply(ctx context.Context, call func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.replyTimeout)
	defer cancel()
	return call(callCtx)
}

func (e *Engine) artifact(ctx context.Context, item catalog.Item) Result {
	result := Result{ItemID: item.ID}
	if !item.Variable || !e.settings.AutoDelivery() {
		result.Artifact = item.Secret
		return result
	}

	code, remaining, err := e.inventory.Draw()
	switch {
	case err == nil:
		e.metrics.IncCodeDrawn(remaining)
		e.logg.Info(e.logg.WithField(ctx, "codes_remaining", remaining), "code drawn from inventory")
		result.Artifact = code
		result.FromPool = true
	case errors.Is(err, inventory.ErrExhausted):
		e.metrics.IncExhausted()
		e.logg.Warn(ctx, "inventory exhausted")
		result.Artifact = texts.NoCodes
		result.Exhausted = true
	default:
		e.logg.Error(ctx, "inventory draw failed", err)
		result.Artifact = texts.NoCodes
		result.Exhausted = true
	}
	return result
}

func (e *Engine) seenBefore(ctx context.Context, chargeID string) bool {
	if e.guard == nil || chargeID == "" {
		return false
	}
	seen, err := e.guard.CheckAndMark(ctx, chargeID)
	if err != nil {
		e.logg.Error(ctx, "idempotency check failed; fulfilling anyway", err)
		return false
	}
	return seen
}
