// Package textnorm holds the text normalisation helpers shared by the
// chunker, the classifiers and the citation scorer.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFC returns s in canonical composed form. Vietnamese text extracted from
// PDFs often mixes composed and decomposed diacritics.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// Lower lower-cases s after composing it.
func Lower(s string) string {
	return strings.ToLower(NFC(s))
}

// CollapseSpaces replaces every run of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripPunct drops every rune that is neither a word character nor
// whitespace.
func StripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Normalize lower-cases, trims, collapses whitespace and then strips
// punctuation, in that order.
func Normalize(s string) string {
	out := strings.TrimSpace(Lower(s))
	out = CollapseSpaces(out)
	return StripPunct(out)
}

// Fold removes diacritics so that "Lương" and "luong" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

// FoldLower is Fold applied to the lower-cased string.
func FoldLower(s string) string {
	return Fold(Lower(s))
}

// ContainsAny reports whether s contains any of the needles.
func ContainsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// WordSet returns the set of whitespace separated words of s.
func WordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// HasPhrase reports whether phrase occurs in s on word boundaries.
func HasPhrase(s, phrase string) bool {
	if phrase == "" {
		return false
	}
	padded := " " + CollapseSpaces(StripPunct(s)) + " "
	return strings.Contains(padded, " "+phrase+" ")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
