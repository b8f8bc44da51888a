package bot

import (
	"context"

	"github.com/mkch/paybot/pkg/enums"
)

// Event is one inbound update, normalized away from the transport.
type Event struct {
	Kind           enums.EventKind
	ConversationID int64
	UserID         int64

	// command
	Command string
	Args    []string

	// text
	Text string

	// button tap
	CallbackID string
	ItemID     string

	// pre-checkout and payment
	QueryID  string
	Payload  string
	Amount   int
	Currency string
	ChargeID string
}

// Button is one inline keyboard entry.
type Button struct {
	Text string
	Data string
}

// LabeledPrice is a single invoice line.
type LabeledPrice struct {
	Label  string
	Amount int
}

// Invoice describes a payment request for one catalog item.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Prices      []LabeledPrice
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photo, caption string, buttons []Button) error
	SendInvoice(ctx context.Context, chatID int64, invoice Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Handler processes a single event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}
