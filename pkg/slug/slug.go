package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s_-]+`)
	separators   = regexp.MustCompile(`[\s-]+`)
	validSlug    = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Generate creates a URL-friendly slug from the given name. Accented letters
// are folded to ASCII, anything else outside letters, digits, underscores and
// hyphens is dropped, and whitespace runs become a single hyphen.
//
// Examples:
//   - "Nike Pegasus 41" → "nike-pegasus-41"
//   - "Saucony Endorphin Pro 4 (Men's)" → "saucony-endorphin-pro-4-mens"
//   - "Asics Gel-Nimbus  26" → "asics-gel-nimbus-26"
//   - "Mizuno Wave Rider Éclair" → "mizuno-wave-rider-eclair"
func Generate(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(b.String())
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-_")
}

// Valid reports whether s could be a slug in a request path.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}
