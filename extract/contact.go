package extract

import "regexp"

// The two accepted contact shapes: a name token followed by an
// angle-bracketed contact ("Jane Doe <jane@example.com>"), or a name
// token followed by a URL ("Jane Doe http://example.com/contact").
var (
	contactAngled = regexp.MustCompile(`\w+\s*<.+>`)
	contactURL    = regexp.MustCompile(`\w+\s+https?://`)
)

// ValidContact reports whether s matches either accepted contact shape.
// It is a pure predicate; the advisory reporting around it lives in the
// extractor.
func ValidContact(s string) bool {
	return contactAngled.MatchString(s) || contactURL.MatchString(s)
}
