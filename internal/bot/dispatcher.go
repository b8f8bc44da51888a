package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkch/paybot/internal/admin"
	"github.com/mkch/paybot/internal/catalog"
	"github.com/mkch/paybot/internal/fulfillment"
	"github.com/mkch/paybot/internal/sessions"
	"github.com/mkch/paybot/internal/texts"
	"github.com/mkch/paybot/pkg/enums"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/mkch/paybot/pkg/metrics"
)

const (
	defaultRequestTimeout = 15 * time.Second

	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

// Fulfiller completes a confirmed payment.
type Fulfiller interface {
	Fulfill(ctx context.Context, c fulfillment.Confirmation) (fulfillment.Result, error)
}

// AdminHandler executes admin-gated commands and returns the reply.
type AdminHandler interface {
	Handle(ctx context.Context, req admin.Request) (string, error)
}

type DispatcherParams struct {
	Catalog        *catalog.Catalog
	Sessions       *sessions.Machine
	Admin          AdminHandler
	Fulfillment    Fulfiller
	Messenger      Messenger
	Logger         *logger.Logger
	Metrics        *metrics.BotMetrics
	WelcomePhoto   string
	Currency       string
	RequestTimeout time.Duration
}

// Dispatcher routes inbound events to the purchase flow, the admin surface
// and the fulfillment engine.
type Dispatcher struct {
	catalog        *catalog.Catalog
	sessions       *sessions.Machine
	admin          AdminHandler
	fulfillment    Fulfiller
	messenger      Messenger
	logg           *logger.Logger
	metrics        *metrics.BotMetrics
	welcomePhoto   string
	currency       string
	requestTimeout time.Duration
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	switch {
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case p.Sessions == nil:
		return nil, fmt.Errorf("session machine required")
	case p.Admin == nil:
		return nil, fmt.Errorf("admin handler required")
	case p.Fulfillment == nil:
		return nil, fmt.Errorf("fulfillment engine required")
	case p.Messenger == nil:
		return nil, fmt.Errorf("messenger required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.Currency == "":
		return nil, fmt.Errorf("currency required")
	}
	timeout := p.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Dispatcher{
		catalog:        p.Catalog,
		sessions:       p.Sessions,
		admin:          p.Admin,
		fulfillment:    p.Fulfillment,
		messenger:      p.Messenger,
		logg:           p.Logger,
		metrics:        p.Metrics,
		welcomePhoto:   p.WelcomePhoto,
		currency:       p.Currency,
		requestTimeout: timeout,
	}, nil
}

// Handle processes ev. Panics are recovered and reported as internal errors.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (err error) {
	ctx = d.logg.WithRequestID(ctx, uuid.NewString())
	ctx = d.logg.WithChatID(ctx, ev.ConversationID)
	ctx = d.logg.WithUserID(ctx, ev.UserID)
	ctx = d.logg.WithEventKind(ctx, ev.Kind.String())

	start := time.Now()
	outcome := outcomeOK
	defer func() {
		if rec := recover(); rec != nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "panic")
			d.logg.Error(d.logg.WithField(ctx, "panic", rec), "panic.recovered", err)
			outcome = outcomePanic
		} else if err != nil {
			outcome = outcomeError
		}
		d.metrics.ObserveEvent(ev.Kind.String(), outcome, time.Since(start))
	}()

	switch ev.Kind {
	case enums.EventKindCommand:
		return d.handleCommand(ctx, ev)
	case enums.EventKindButtonTap:
		return d.handleButton(ctx, ev)
	case enums.EventKindText:
		return d.handleText(ctx, ev)
	case enums.EventKindPreCheckout:
		return d.handlePreCheckout(ctx, ev)
	case enums.EventKindPayment:
		return d.handlePayment(ctx, ev)
	default:
		d.logg.Warn(ctx, "unsupported event kind")
		return nil
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) error {
	ctx = d.logg.WithField(ctx, "command", ev.Command)
	switch ev.Command {
	case "start":
		return d.send(ctx, func(ctx context.Context) error {
			return d.messenger.SendPhoto(ctx, ev.ConversationID, d.welcomePhoto, texts.Welcome, d.catalogButtons())
		})
	case "help":
		return d.send(ctx, func(ctx context.Context) error {
			return d.messenger.SendMarkdown(ctx, ev.ConversationID, texts.Help)
		})
	case "cancel":
		decision := d.sessions.Cancel(ev.ConversationID)
		if decision.Action != sessions.ActionCancelled {
			return nil
		}
		d.logg.Info(ctx, "purchase session cancelled")
		return d.reply(ctx, ev.ConversationID, texts.Cancelled)
	}
	if !admin.Handles(ev.Command) {
		d.logg.Debug(ctx, "ignoring unknown command")
		return nil
	}
	reply, adminErr := d.admin.Handle(ctx, admin.Request{
		UserID:  ev.UserID,
		Command: ev.Command,
		Args:    ev.Args,
	})
	if adminErr != nil {
		d.logg.Warn(d.logg.WithField(ctx, "reason", adminErr.Error()), "admin command not applied")
	}
	return d.reply(ctx, ev.ConversationID, reply)
}

func (d *Dispatcher) handleButton(ctx context.Context, ev Event) error {
	if ev.CallbackID != "" {
		if err := d.send(ctx, func(ctx context.Context) error {
			return d.messenger.AnswerCallback(ctx, ev.CallbackID)
		}); err != nil {
			d.logg.Warn(d.logg.WithField(ctx, "reason", err.Error()), "callback acknowledgement failed")
		}
	}
	ctx = d.logg.WithField(ctx, "item_id", ev.ItemID)
	return d.apply(ctx, ev.ConversationID, d.sessions.SelectItem(ev.ConversationID, ev.ItemID))
}

func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	return d.apply(ctx, ev.ConversationID, d.sessions.EnterAmount(ev.ConversationID, ev.Text))
}

func (d *Dispatcher) apply(ctx context.Context, chatID int64, decision sessions.Decision) error {
	switch decision.Action {
	case sessions.ActionPromptAmount:
		return d.reply(ctx, chatID, texts.EnterAmount(decision.MinPrice))
	case sessions.ActionInvalidAmount:
		return d.reply(ctx, chatID, texts.InvalidAmount(decision.MinPrice))
	case sessions.ActionUnknownItem:
		return d.reply(ctx, chatID, texts.UnknownItem)
	case sessions.ActionIssueInvoice:
		return d.issueInvoice(ctx, chatID, decision.Item, decision.Amount)
	default:
		return nil
	}
}

func (d *Dispatcher) issueInvoice(ctx context.Context, chatID int64, item catalog.Item, amount int) error {
	title := item.Name
	if item.Variable {
		title = texts.InvoiceTitle(item.Name, amount)
	}
	invoice := Invoice{
		Title:       title,
		Description: item.Description,
		Payload:     item.ID,
		Currency:    d.currency,
		Prices:      []LabeledPrice{{Label: item.Name, Amount: amount}},
	}
	ctx = d.logg.WithFields(ctx, map[string]any{"item_id": item.ID, "amount": amount})
	if err := d.send(ctx, func(ctx context.Context) error {
		return d.messenger.SendInvoice(ctx, chatID, invoice)
	}); err != nil {
		d.logg.Error(ctx, "failed to issue invoice", err)
		if replyErr := d.reply(ctx, chatID, texts.RequestFailed); replyErr != nil {
			d.logg.Error(ctx, "failed to report invoice failure", replyErr)
		}
		return err
	}
	d.logg.Info(ctx, "invoice issued")
	return nil
}

func (d *Dispatcher) handlePreCheckout(ctx context.Context, ev Event) error {
	ok := d.catalog.Has(ev.Payload)
	reason := ""
	if !ok {
		reason = texts.PreCheckoutBad
		d.logg.Warn(d.logg.WithField(ctx, "payload", ev.Payload), "pre-checkout rejected for unknown item")
	}
	return d.send(ctx, func(ctx context.Context) error {
		return d.messenger.AnswerPreCheckout(ctx, ev.QueryID, ok, reason)
	})
}

func (d *Dispatcher) handlePayment(ctx context.Context, ev Event) error {
	_, err := d.fulfillment.Fulfill(ctx, fulfillment.Confirmation{
		ItemID:   ev.Payload,
		Amount:   ev.Amount,
		Currency: ev.Currency,
		BuyerID:  ev.UserID,
		ChatID:   ev.ConversationID,
		ChargeID: ev.ChargeID,
	})
	return err
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) error {
	return d.send(ctx, func(ctx context.Context) error {
		return d.messenger.SendText(ctx, chatID, text)
	})
}

// send bounds a provider call by the request timeout and tags failures as
// transport errors.
func (d *Dispatcher) send(ctx context.Context, call func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout)
	defer cancel()
	if err := call(callCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "provider call failed")
	}
	return nil
}

func (d *Dispatcher) catalogButtons() []Button {
	items := d.catalog.Items()
	buttons := make([]Button, 0, len(items))
	for _, item := range items {
		buttons = append(buttons, Button{Text: item.Name, Data: item.ID})
	}
	return buttons
}
