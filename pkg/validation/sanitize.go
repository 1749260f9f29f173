package validation

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup and unprintable characters from free text and
// trims surrounding whitespace. Entities escaped by the HTML policy are
// restored so names like "Ana & Bia" survive intact.
func SanitizeText(s string) string {
	cleaned := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.TrimSpace(StripUnprintable(cleaned))
}

// StripUnprintable removes non-printable characters, keeping tabs and newlines.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// SanitizeForFormulaInjection prefixes a quote to cells a spreadsheet would
// evaluate as a formula.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
