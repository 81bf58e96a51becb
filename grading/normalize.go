package grading

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ocrCleaner = transform.Chain(
	norm.NFKC,
	runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.IsControl(r) && r != '\n' && r != '\t'
	})),
)

// NormalizeOCRText folds Unicode compatibility forms (fullwidth digits,
// ligatures) to their plain equivalents and strips stray control runes that
// OCR engines occasionally emit. Plain ASCII passes through unchanged.
func NormalizeOCRText(text string) string {
	out, _, err := transform.String(ocrCleaner, text)
	if err != nil {
		return text
	}
	return out
}
