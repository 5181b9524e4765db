// Package matching canonicalizes candidate names and scores how likely two
// differently formatted names refer to the same person.
package matching

import (
	"strings"
	"unicode"
)

// DefaultThreshold is the similarity above which two names are treated as the
// same candidate unless configured otherwise.
const DefaultThreshold = 0.85

// generationalSuffixes are trailing tokens that carry no identity signal.
var generationalSuffixes = map[string]struct{}{
	"jr":  {},
	"sr":  {},
	"ii":  {},
	"iii": {},
	"iv":  {},
	"v":   {},
}

// Normalize canonicalizes a display name for comparison. It is deterministic
// and idempotent: Normalize(Normalize(x)) == Normalize(x). Applied in order:
// lowercase, drop single-letter initials ("Q."), strip punctuation, strip
// generational suffixes, collapse whitespace. Per-token cleanup must happen
// before the suffix pass: punctuation stripping can expose a suffix-shaped
// trailing token ("J.R." -> "jr") that the suffix pass has to see. Malformed
// or empty input normalizes to the empty string.
func Normalize(name string) string {
	tokens := strings.Fields(strings.ToLower(name))

	cleaned := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isInitial(tok) {
			continue
		}
		if stripped := stripPunct(tok); stripped != "" {
			cleaned = append(cleaned, stripped)
		}
	}

	// Trailing suffixes may stack ("Moore, Jr. III").
	for len(cleaned) > 0 {
		if _, ok := generationalSuffixes[cleaned[len(cleaned)-1]]; !ok {
			break
		}
		cleaned = cleaned[:len(cleaned)-1]
	}

	return strings.Join(cleaned, " ")
}

// isInitial reports whether a token is a single letter followed by a period.
func isInitial(tok string) bool {
	trimmed := strings.TrimRight(tok, ".,")
	return len(trimmed) == 1 &&
		len(trimmed) < len(tok) &&
		unicode.IsLetter(rune(trimmed[0]))
}

func stripPunct(tok string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, tok)
}
