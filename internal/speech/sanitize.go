// Package speech turns a raw model reply into text for the TTS engine.
package speech

import (
	"strings"

	"glados/pkg/protocol"
)

// replacements bias TTS pronunciation. Applied once each, in this order.
var replacements = []struct{ from, to string }{
	{"что", "што"},
	{"чтобы", "штобы"},
	{"конечно", "конешно"},
	{"°С", "градусов"},
	{"%", "процентов"},
	{"м/с", "метров в секунду"},
}

// Sanitize drops <think> and <command> blocks, trims the reply and applies
// the pronunciation replacements.
func Sanitize(raw string) string {
	text := protocol.StripTags(raw, protocol.ThinkTag, protocol.CommandTag)
	text = strings.TrimSpace(text)

	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	return text
}
