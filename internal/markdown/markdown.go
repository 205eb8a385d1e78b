// Package markdown escapes text for Telegram's MarkdownV2 parse mode.
package markdown

import (
	"fmt"
	"strings"
)

const ParseMode = "MarkdownV2"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`,
	"*", `\*`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"~", `\~`,
	"`", "\\`",
	">", `\>`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	"=", `\=`,
	"|", `\|`,
	"{", `\{`,
	"}", `\}`,
	".", `\.`,
	"!", `\!`,
)

var urlEscaper = strings.NewReplacer(`\`, `\\`, ")", `\)`)

// Escape makes arbitrary text safe to embed in a MarkdownV2 message
func Escape(text string) string {
	return escaper.Replace(text)
}

// Escapef formats like fmt.Sprintf and escapes every argument, leaving the
// format string itself untouched. Arguments are stringified first, so verbs
// must be %s or %v.
func Escapef(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = Escape(fmt.Sprint(arg))
	}
	return fmt.Sprintf(format, escaped...)
}

// Link builds an inline link with an escaped label and URL
func Link(label, url string) string {
	return "[" + Escape(label) + "](" + urlEscaper.Replace(url) + ")"
}

// UserLink links to a Telegram user profile
func UserLink(label string, telegramID int64) string {
	return Link(label, fmt.Sprintf("tg://user?id=%d", telegramID))
}
