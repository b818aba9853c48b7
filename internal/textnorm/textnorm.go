// Package textnorm folds text into a diacritic-insensitive, case-insensitive
// form and splits it into tokens. Every matcher in the module compares text
// through this package so that "Mineração" and "mineracao" are the same word.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are Portuguese function words, stored already folded
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "o", "as", "os", "um", "uma", "uns", "umas",
		"de", "da", "do", "das", "dos",
		"e", "ou", "em", "no", "na", "nos", "nas",
		"por", "para", "com", "sem", "sobre", "entre", "até",
		"que", "se", "ao", "aos", "à", "às",
		"não", "sim", "mais", "menos",
		"ser", "estar", "ter", "há",
	} {
		stopWords[Fold(w)] = struct{}{}
	}
}

func newFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold strips diacritics and lower-cases s without trimming it
func Fold(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(newFolder(), s)
	if err != nil {
		folded = s
	}

	return strings.ToLower(folded)
}

// Normalize is Fold followed by trimming surrounding whitespace
func Normalize(s string) string {
	return strings.TrimSpace(Fold(s))
}

// Tokens splits the normalized text on whitespace
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Words splits the normalized text on any rune that is not a letter or digit.
// It is the tokenizer used for indexing.
func Words(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsStopWord reports whether the token is a Portuguese function word
func IsStopWord(token string) bool {
	_, ok := stopWords[Fold(token)]
	return ok
}

// IsUseful accepts tokens of three or more runes, and two-rune tokens that
// are not stop words
func IsUseful(token string) bool {
	n := len([]rune(token))
	if n >= 3 {
		return true
	}

	return n == 2 && !IsStopWord(token)
}

// UsefulTokens returns the whitespace tokens of s that pass IsUseful
func UsefulTokens(s string) []string {
	var out []string

	for _, t := range Tokens(s) {
		if IsUseful(t) {
			out = append(out, t)
		}
	}

	return out
}

// SplitList splits a delimited list on ';', ',' or '|', trimming each part and
// dropping empties
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '|'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Dedupe keeps the first occurrence of each string, preserving order
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}
