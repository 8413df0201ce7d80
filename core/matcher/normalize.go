package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes characters and drops the combining marks, so
// "Pietrosanti Niccolò" and "PIETROSANTI NICCOLO" normalize to the same form.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares a name for similarity comparison: accents are stripped,
// the string is uppercased and runs of whitespace collapse to a single space.
func Normalize(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the raw
		// input so a bad byte never blocks a comparison.
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}
