package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeKey canonicalises an identity key: NFKC folding (so full-width
// digits equal ASCII ones), surrounding and inner whitespace removed, upper case.
// "  reg 00１ " -> "REG001".
func NormalizeKey(key string) string {
	key = norm.NFKC.String(key)
	key = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, key)
	return strings.ToUpper(key)
}

// NormalizeName tidies a display name: NFC, trimmed, inner whitespace collapsed.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// NormalizeFieldName maps form field names to a comparable form (lowercase, no diacritics,
// spaces and dashes to underscores).
func NormalizeFieldName(name string) string {
	name = RemoveDiacritics(strings.TrimSpace(name))
	name = strings.ToLower(name)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}
