package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips diacritics so "Hipertensión" matches "hipertension".
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// mentionsAny reports whether any term occurs in text.
func mentionsAny(text string, terms []string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	folded := Fold(text)
	for _, term := range terms {
		if term != "" && strings.Contains(folded, Fold(term)) {
			return true
		}
	}
	return false
}
