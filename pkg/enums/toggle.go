package enums

import (
	"fmt"
	"strings"
)

// Toggle is the on/off argument accepted by switch-style admin commands.
type Toggle string

const (
	ToggleOn  Toggle = "on"
	ToggleOff Toggle = "off"
)

var validToggles = []Toggle{
	ToggleOn,
	ToggleOff,
}

// String implements fmt.Stringer.
func (t Toggle) String() string {
	return string(t)
}

// IsValid reports whether the value is a known Toggle.
func (t Toggle) IsValid() bool {
	for _, candidate := range validToggles {
		if candidate == t {
			return true
		}
	}
	return false
}

// Bool maps the toggle onto a flag value.
func (t Toggle) Bool() bool {
	return t == ToggleOn
}

// ParseToggle converts raw input into a Toggle, ignoring case and padding.
func ParseToggle(value string) (Toggle, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validToggles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid toggle %q", value)
}
