package slug

import (
	"strings"
	"unicode"
)

// Slugify normalizes a title or desired slug into a URL-safe slug:
// lowercase, non-alphanumerics collapsed to single hyphens, trimmed.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
