package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkch/paybot/internal/bot"
	"github.com/mkch/paybot/pkg/enums"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	response *tgbotapi.APIResponse
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.response != nil {
		return f.response, nil
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func newFakeClient() (*Client, *fakeAPI) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
	return newClient(api, 30, logger.Nop()), api
}

func TestSendMarkdownSetsParseMode(t *testing.T) {
	client, api := newFakeClient()
	require.NoError(t, client.SendMarkdown(context.Background(), 5, "*hi*"))

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, msg.ParseMode)
}

func TestSendPhotoBuildsKeyboard(t *testing.T) {
	client, api := newFakeClient()
	buttons := []bot.Button{{Text: "Key", Data: "PASSCODE"}, {Text: "Guide", Data: "GUIDE"}}
	require.NoError(t, client.SendPhoto(context.Background(), 5, "img/logo.jpg", "welcome", buttons))

	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "welcome", photo.Caption)
	markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	require.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "GUIDE", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestSendInvoice(t *testing.T) {
	client, api := newFakeClient()
	err := client.SendInvoice(context.Background(), 5, bot.Invoice{
		Title:       "Key (10 ⭐)",
		Description: "desc",
		Payload:     "PASSCODE",
		Currency:    "XTR",
		Prices:      []bot.LabeledPrice{{Label: "Key", Amount: 10}},
	})
	require.NoError(t, err)

	inv, ok := api.sent[0].(tgbotapi.InvoiceConfig)
	require.True(t, ok)
	assert.Equal(t, "PASSCODE", inv.Payload)
	assert.Equal(t, "XTR", inv.Currency)
	assert.Equal(t, []tgbotapi.LabeledPrice{{Label: "Key", Amount: 10}}, inv.Prices)
	assert.NotNil(t, inv.SuggestedTipAmounts)
}

func TestSendPropagatesErrors(t *testing.T) {
	client, api := newFakeClient()
	api.sendErr = errors.New("bad request")
	require.Error(t, client.SendText(context.Background(), 1, "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api.sendErr = nil
	require.ErrorIs(t, client.SendText(ctx, 1, "x"), context.Canceled)
}

func TestAnswerPreCheckoutAndCallback(t *testing.T) {
	client, api := newFakeClient()
	ctx := context.Background()

	require.NoError(t, client.AnswerPreCheckout(ctx, "q1", false, "nope"))
	require.NoError(t, client.AnswerCallback(ctx, "cb1"))

	pc, ok := api.requests[0].(tgbotapi.PreCheckoutConfig)
	require.True(t, ok)
	assert.Equal(t, "q1", pc.PreCheckoutQueryID)
	assert.False(t, pc.OK)
	assert.Equal(t, "nope", pc.ErrorMessage)

	cb, ok := api.requests[1].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb1", cb.CallbackQueryID)

	api.response = &tgbotapi.APIResponse{Ok: false, Description: "query too old"}
	require.Error(t, client.AnswerCallback(ctx, "cb2"))
}

func commandMessage(text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 10},
		From:     &tgbotapi.User{ID: 20},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestToEvent(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   bot.Event
		ok     bool
	}{
		{
			name:   "command with args",
			update: tgbotapi.Update{Message: commandMessage("/setprice 50", 9)},
			want:   bot.Event{Kind: enums.EventKindCommand, ConversationID: 10, UserID: 20, Command: "setprice", Args: []string{"50"}},
			ok:     true,
		},
		{
			name:   "command addressed to bot",
			update: tgbotapi.Update{Message: commandMessage("/start@paybot", 13)},
			want:   bot.Event{Kind: enums.EventKindCommand, ConversationID: 10, UserID: 20, Command: "start", Args: []string{}},
			ok:     true,
		},
		{
			name: "plain text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 10}, From: &tgbotapi.User{ID: 20}, Text: "100",
			}},
			want: bot.Event{Kind: enums.EventKindText, ConversationID: 10, UserID: 20, Text: "100"},
			ok:   true,
		},
		{
			name: "successful payment",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 10}, From: &tgbotapi.User{ID: 20},
				SuccessfulPayment: &tgbotapi.SuccessfulPayment{
					Currency: "XTR", TotalAmount: 5, InvoicePayload: "PASSCODE", TelegramPaymentChargeID: "ch",
				},
			}},
			want: bot.Event{
				Kind: enums.EventKindPayment, ConversationID: 10, UserID: 20,
				Payload: "PASSCODE", Amount: 5, Currency: "XTR", ChargeID: "ch",
			},
			ok: true,
		},
		{
			name: "button tap",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "cb", From: &tgbotapi.User{ID: 20}, Data: "PASSCODE",
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 10}},
			}},
			want: bot.Event{Kind: enums.EventKindButtonTap, ConversationID: 10, UserID: 20, CallbackID: "cb", ItemID: "PASSCODE"},
			ok:   true,
		},
		{
			name: "pre-checkout",
			update: tgbotapi.Update{PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{
				ID: "q", From: &tgbotapi.User{ID: 20}, Currency: "XTR", TotalAmount: 5, InvoicePayload: "PASSCODE",
			}},
			want: bot.Event{
				Kind: enums.EventKindPreCheckout, ConversationID: 20, UserID: 20,
				QueryID: "q", Payload: "PASSCODE", Amount: 5, Currency: "XTR",
			},
			ok: true,
		},
		{
			name:   "empty message",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 10}, From: &tgbotapi.User{ID: 20}}},
		},
		{
			name:   "unsupported update",
			update: tgbotapi.Update{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEvent(tt.update)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRunSubmitsMappedUpdates(t *testing.T) {
	client, api := newFakeClient()
	api.updates <- tgbotapi.Update{UpdateID: 1, Message: commandMessage("/help", 5)}
	api.updates <- tgbotapi.Update{UpdateID: 2}
	close(api.updates)

	var got []bot.Event
	err := client.Run(context.Background(), func(_ context.Context, ev bot.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "help", got[0].Command)
	assert.True(t, api.stopped)
}

func TestRunStopsOnCancel(t *testing.T) {
	client, _ := newFakeClient()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := client.Run(ctx, func(context.Context, bot.Event) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
