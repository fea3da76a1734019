package aggregate

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCity canonicalizes a city value: commas are removed, whitespace is
// trimmed and collapsed, and the result is title-cased so that every letter
// following a non-letter is capitalized ("o'fallon" -> "O'Fallon"). Values that are not
// strings normalize to "". NormalizeCity(NormalizeCity(v)) == NormalizeCity(v).
func NormalizeCity(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case *string:
		if t == nil {
			return ""
		}
		s = *t
	default:
		return ""
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return titleWords(cases.Lower(language.Und).String(s))
}

// titleWords upper-cases each cased rune that follows an uncased one.
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		if cased && !prevCased {
			r = unicode.ToTitle(r)
		}
		b.WriteRune(r)
		prevCased = cased
	}
	return b.String()
}
