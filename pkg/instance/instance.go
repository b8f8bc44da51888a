package instance

import (
	"os"

	"github.com/mkch/paybot/pkg/env"
)

const envInstanceID = "PAYBOT_INSTANCE_ID"

// GetID returns the process identifier used in logs. It prefers
// PAYBOT_INSTANCE_ID, then the hostname.
func GetID() string {
	if id, ok := env.Lookup(envInstanceID); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "paybot-0"
}
