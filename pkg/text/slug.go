// Package text holds small string helpers shared by the catalog services.
package text

import (
	"strings"
	"unicode"
)

// Slugify turns an arbitrary display name into a URL-safe slug.
// Runs of non-alphanumeric characters collapse into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
