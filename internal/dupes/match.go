package dupes

import (
	"strings"
	"unicode"
)

// Similarity returns how similar two names are (0.0-1.0). Registry naming
// may differ in punctuation and casing, so comparison runs on normalized
// strings: compact equality first, then token overlap.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)

	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if compact(a) == compact(b) {
		return 1.0
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	matches := 0
	for _, t := range tokensA {
		if setB[t] {
			matches++
		}
	}

	maxLen := len(tokensA)
	if len(tokensB) > maxLen {
		maxLen = len(tokensB)
	}
	return float64(matches) / float64(maxLen)
}

// SameTitle reports whether two names are the same title modulo
// punctuation, casing and spacing. Used for self-match exclusion.
func SameTitle(a, b string) bool {
	return compact(normalize(a)) == compact(normalize(b))
}

// normalize lowercases and strips non-alphanumeric characters for comparison.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func compact(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
