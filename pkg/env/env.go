package env

import "os"

// Lookup returns the first non-empty value among keys.
func Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val, true
		}
	}
	return "", false
}

// Get returns the first non-empty value among keys, or fallback.
func Get(fallback string, keys ...string) string {
	if val, ok := Lookup(keys...); ok {
		return val
	}
	return fallback
}
