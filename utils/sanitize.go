package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// maxPlainTextLen caps client supplied identifiers echoed back in responses.
const maxPlainTextLen = 64

// SanitizePlainText strips all markup from s and bounds its length.
func SanitizePlainText(s string) string {
	out := strings.TrimSpace(strictPolicy.Sanitize(s))
	if utf8.RuneCountInString(out) > maxPlainTextLen {
		out = string([]rune(out)[:maxPlainTextLen])
	}
	return out
}
