// Package entity pulls the small set of slots the conversation cares about
// (a year, an ordinal position, a source or category label, a pointing
// phrase) out of a single utterance. Extractors are pure and independent of
// one another.
package entity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kyleking/catalog-chat/internal/textnorm"
)

var (
	yearRe     = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	sourceRe   = regexp.MustCompile(`(?i)\b(?:fonte|source)\s*[:\-]\s*(.+)$`)
	categoryRe = regexp.MustCompile(`(?i)\b(?:categor(?:ia|ía)|category)\s*[:\-]\s*(.+)$`)

	ordinalWords = []struct {
		re       *regexp.Regexp
		position int
	}{
		{regexp.MustCompile(`\b(primeir[ao]|first)\b`), 1},
		{regexp.MustCompile(`\b(segund[ao]|second)\b`), 2},
		{regexp.MustCompile(`\b(terceir[ao]|third)\b`), 3},
	}
	leadingNumberRe = regexp.MustCompile(`^(?:(?:a|o|the|no|n)\s*[.:]?\s*)?(\d{1,3})(?:a|o|ª|º|st|nd|rd|th)?(?:$|[\s.,!?)])`)

	deicticExact = map[string]bool{
		"essa": true, "essa tabela": true, "essa camada": true,
		"esta": true, "esta tabela": true, "esta camada": true,
		"a tabela": true, "a camada": true,
		"this": true, "this one": true, "this table": true, "that one": true,
	}
	deicticWordRe = regexp.MustCompile(`\b(dessa|nessa|desta|nesta)\b`)
)

// Set is every entity found in one utterance. Zero values mean absent.
type Set struct {
	Year         int
	Ordinal      int
	SourceHint   string
	CategoryHint string
	Deictic      bool
}

// Extract runs all extractors over text
func Extract(text string) Set {
	return Set{
		Year:         Year(text),
		Ordinal:      Ordinal(text),
		SourceHint:   SourceHint(text),
		CategoryHint: CategoryHint(text),
		Deictic:      IsDeictic(text),
	}
}

// Any reports whether an ordinal, year or source hint was found
func (s Set) Any() bool {
	return s.Year != 0 || s.Ordinal != 0 || s.SourceHint != ""
}

// Year returns the first 19xx or 20xx token, or 0
func Year(text string) int {
	m := yearRe.FindStringSubmatch(textnorm.Normalize(text))
	if m == nil {
		return 0
	}

	year, _ := strconv.Atoi(m[1])

	return year
}

// Ordinal returns a 1-based position from first/second/third words or a
// short leading number such as "2" or "2a", or 0
func Ordinal(text string) int {
	t := textnorm.Normalize(text)

	for _, w := range ordinalWords {
		if w.re.MatchString(t) {
			return w.position
		}
	}

	m := leadingNumberRe.FindStringSubmatch(t)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0
	}

	return n
}

// SourceHint returns the text after a "fonte:" or "source:" label
func SourceHint(text string) string {
	m := sourceRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[1])
}

// CategoryHint returns the text after a "categoria:" or "category:" label
func CategoryHint(text string) string {
	m := categoryRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m[1])
}

// IsDeictic reports whether the utterance points at "this table" rather than
// naming one
func IsDeictic(text string) bool {
	t := textnorm.Normalize(text)

	return deicticExact[t] || deicticWordRe.MatchString(t)
}
