// Package telegram adapts the Telegram Bot API to the bot's Messenger port and
// event model.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkch/paybot/internal/bot"
	"github.com/mkch/paybot/pkg/config"
	"github.com/mkch/paybot/pkg/enums"
	"github.com/mkch/paybot/pkg/logger"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client implements bot.Messenger and feeds inbound updates to a submit func.
type Client struct {
	api         botAPI
	logg        *logger.Logger
	pollTimeout int
}

var _ bot.Messenger = (*Client)(nil)

// New connects to the Bot API. The HTTP client timeout covers one long poll
// plus the provider request bound.
func New(cfg config.TelegramConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout + time.Duration(cfg.PollTimeout)*time.Second,
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	api.Debug = cfg.Debug
	logg.Info(logg.WithField(context.Background(), "bot_username", api.Self.UserName), "telegram bot authorized")
	return newClient(api, cfg.PollTimeout, logg), nil
}

func newClient(api botAPI, pollTimeout int, logg *logger.Logger) *Client {
	return &Client{api: api, logg: logg, pollTimeout: pollTimeout}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (c *Client) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return c.send(ctx, msg)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo, caption string, buttons []bot.Button) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photo))
	msg.Caption = caption
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return c.send(ctx, msg)
}

func (c *Client) SendInvoice(ctx context.Context, chatID int64, invoice bot.Invoice) error {
	prices := make([]tgbotapi.LabeledPrice, 0, len(invoice.Prices))
	for _, p := range invoice.Prices {
		prices = append(prices, tgbotapi.LabeledPrice{Label: p.Label, Amount: p.Amount})
	}
	// Stars invoices take no provider token.
	cfg := tgbotapi.NewInvoice(chatID, invoice.Title, invoice.Description, invoice.Payload, "", "", invoice.Currency, prices)
	cfg.SuggestedTipAmounts = []int{}
	return c.send(ctx, cfg)
}

func (c *Client) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error {
	return c.request(ctx, tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       reason,
	})
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.request(ctx, tgbotapi.NewCallback(callbackID, ""))
}

// Run polls for updates and submits each mapped event until ctx is canceled
// or the update channel closes.
func (c *Client) Run(ctx context.Context, submit func(context.Context, bot.Event) error) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	c.logg.Info(ctx, "telegram polling started")
	for {
		select {
		case <-ctx.Done():
			c.logg.Info(ctx, "telegram polling stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			if err := submit(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logg.Error(c.logg.WithField(ctx, "update_id", update.UpdateID), "failed to submit update", err)
			}
		}
	}
}

// send and request only check ctx before the call: tgbotapi takes no context,
// so the in-flight bound is the http.Client timeout set in New.
func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := c.api.Request(msg)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	if resp != nil && !resp.Ok {
		return fmt.Errorf("telegram request rejected: %s", resp.Description)
	}
	return nil
}

// ToEvent maps an update onto the bot event model. Updates the bot does not
// act on report false.
func ToEvent(update tgbotapi.Update) (bot.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil {
			return bot.Event{}, false
		}
		conversation := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			conversation = q.Message.Chat.ID
		}
		return bot.Event{
			Kind:           enums.EventKindButtonTap,
			ConversationID: conversation,
			UserID:         q.From.ID,
			CallbackID:     q.ID,
			ItemID:         q.Data,
		}, true
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if q.From == nil {
			return bot.Event{}, false
		}
		return bot.Event{
			Kind:           enums.EventKindPreCheckout,
			ConversationID: q.From.ID,
			UserID:         q.From.ID,
			QueryID:        q.ID,
			Payload:        q.InvoicePayload,
			Amount:         q.TotalAmount,
			Currency:       q.Currency,
		}, true
	case update.Message != nil:
		return messageEvent(update.Message)
	default:
		return bot.Event{}, false
	}
}

func messageEvent(msg *tgbotapi.Message) (bot.Event, bool) {
	if msg.From == nil || msg.Chat == nil {
		return bot.Event{}, false
	}
	ev := bot.Event{ConversationID: msg.Chat.ID, UserID: msg.From.ID}
	switch {
	case msg.SuccessfulPayment != nil:
		p := msg.SuccessfulPayment
		ev.Kind = enums.EventKindPayment
		ev.Payload = p.InvoicePayload
		ev.Amount = p.TotalAmount
		ev.Currency = p.Currency
		ev.ChargeID = p.TelegramPaymentChargeID
	case msg.IsCommand():
		ev.Kind = enums.EventKindCommand
		ev.Command = strings.ToLower(msg.Command())
		ev.Args = strings.Fields(msg.CommandArguments())
	case strings.TrimSpace(msg.Text) != "":
		ev.Kind = enums.EventKindText
		ev.Text = msg.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}
