// Package markdown escapes user-controlled text for Telegram MarkdownV2.
package markdown

import "strings"

const specialChars = "_*[]()~`>#+-=|{}.!\\"

// Escape makes text render literally in a MarkdownV2 message body.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Code wraps text in an inline code span. Inside a span only the backtick
// and backslash are special.
func Code(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte('`')
	for _, r := range text {
		if r == '`' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('`')
	return b.String()
}
