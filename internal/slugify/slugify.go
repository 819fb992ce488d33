// Package slugify canonicalizes human-authored display text into
// kebab-case identifiers: lowercase ASCII letters, digits, and hyphens,
// with accents stripped via Unicode compatibility decomposition.
package slugify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining marks after NFKD decomposition, so
// "café" becomes "cafe" before the alphanumeric filter runs.
var stripAccents = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slugify converts s to a kebab-case identifier. The function is pure,
// stateless, and idempotent: Slugify(Slugify(x)) == Slugify(x).
func Slugify(s string) string {
	ascii, _, err := transform.String(stripAccents, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	b.Grow(len(ascii))
	lastWasSep := true // true so leading separators are dropped
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSep = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastWasSep = false
		default:
			if !lastWasSep {
				b.WriteByte('-')
				lastWasSep = true
			}
		}
	}

	out := b.String()
	return strings.TrimRight(out, "-")
}
