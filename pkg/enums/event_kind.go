package enums

import "fmt"

// EventKind classifies inbound transport events.
type EventKind string

const (
	EventKindCommand     EventKind = "command"
	EventKindButtonTap   EventKind = "button_tap"
	EventKindText        EventKind = "text"
	EventKindPreCheckout EventKind = "pre_checkout"
	EventKindPayment     EventKind = "payment"
)

var validEventKinds = []EventKind{
	EventKindCommand,
	EventKindButtonTap,
	EventKindText,
	EventKindPreCheckout,
	EventKindPayment,
}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known EventKind.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into an EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
