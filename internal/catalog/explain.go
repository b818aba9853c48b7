package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kyleking/catalog-chat/internal/textnorm"
)

const (
	maxReasonHits   = 4
	maxFacetsByKind = 4
	maxFacets       = 6
	maxDetailCols   = 40
)

// Suggestion is the lightweight record kept for the last shown results so
// later turns can refer to them by position, year or source
type Suggestion struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	Source string `json:"source,omitempty"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewSuggestion builds a suggestion from a document
func NewSuggestion(doc Document, reason string) Suggestion {
	return Suggestion{
		ID:     doc.ID,
		Title:  doc.Title,
		Year:   doc.Year,
		Source: doc.Source,
		Path:   doc.Path,
		Reason: reason,
	}
}

// Category returns the first path segment of the suggestion
func (s Suggestion) Category() string {
	category, _, _ := strings.Cut(s.Path, PathSeparator)
	return strings.TrimSpace(category)
}

// ExplainMatch says briefly why doc matched query: which keywords and columns
// contain a useful query token, and whether a description exists
func ExplainMatch(query string, doc Document) string {
	tokens := textnorm.UsefulTokens(query)

	kwHits := substringHits(tokens, doc.Keywords)
	colHits := substringHits(tokens, doc.Columns)

	var parts []string
	if len(kwHits) > 0 {
		parts = append(parts, "keywords: "+strings.Join(kwHits, ", "))
	}

	if len(colHits) > 0 {
		parts = append(parts, "colunas: "+strings.Join(colHits, ", "))
	}

	if doc.Description != "" {
		parts = append(parts, "descrição compatível")
	}

	if len(parts) == 0 {
		return "compatibilidade geral"
	}

	return strings.Join(parts, " · ")
}

func substringHits(tokens, fields []string) []string {
	folded := make([]string, len(fields))
	for i, f := range fields {
		folded[i] = textnorm.Fold(f)
	}

	var hits []string

	for _, t := range tokens {
		for _, f := range folded {
			if strings.Contains(f, t) {
				hits = append(hits, t)
				break
			}
		}
	}

	hits = textnorm.Dedupe(hits)
	if len(hits) > maxReasonHits {
		hits = hits[:maxReasonHits]
	}

	return hits
}

// FacetKind distinguishes refinement facets
type FacetKind string

const (
	FacetCategory FacetKind = "category"
	FacetYear     FacetKind = "year"
)

// Facet is a follow-up refinement suggested from a result set
type Facet struct {
	Kind  FacetKind
	Value string
	Count int
}

// Label renders the facet as the prompt the user can send back
func (f Facet) Label() string {
	if f.Kind == FacetYear {
		return "Ano: " + f.Value
	}

	return "Categoria: " + f.Value
}

// RefinementFacets counts categories and years across docs and returns the
// most frequent four of each, categories first, capped at six overall.
// Equal counts keep first-seen order.
func RefinementFacets(docs []Document) []Facet {
	var categories, years []Facet

	catPos := make(map[string]int)
	yearPos := make(map[string]int)

	for _, doc := range docs {
		if cat := doc.Category(); cat != "" {
			if i, ok := catPos[cat]; ok {
				categories[i].Count++
			} else {
				catPos[cat] = len(categories)
				categories = append(categories, Facet{Kind: FacetCategory, Value: cat, Count: 1})
			}
		}

		if doc.Year != 0 {
			y := strconv.Itoa(doc.Year)
			if i, ok := yearPos[y]; ok {
				years[i].Count++
			} else {
				yearPos[y] = len(years)
				years = append(years, Facet{Kind: FacetYear, Value: y, Count: 1})
			}
		}
	}

	facets := append(topFacets(categories), topFacets(years)...)
	if len(facets) > maxFacets {
		facets = facets[:maxFacets]
	}

	return facets
}

func topFacets(facets []Facet) []Facet {
	sort.SliceStable(facets, func(i, j int) bool {
		return facets[i].Count > facets[j].Count
	})

	if len(facets) > maxFacetsByKind {
		facets = facets[:maxFacetsByKind]
	}

	return facets
}

// MatchDocuments returns the documents of the given matches in rank order
func MatchDocuments(matches []Match) []Document {
	docs := make([]Document, len(matches))
	for i, m := range matches {
		docs[i] = m.Document
	}

	return docs
}

// FormatDetails renders the full description of a document
func FormatDetails(doc Document) string {
	lines := []string{strings.ToUpper(doc.Title)}

	if doc.Path != "" {
		lines = append(lines, "Caminho: "+doc.Path)
	}

	if doc.Year != 0 {
		lines = append(lines, fmt.Sprintf("Ano: %d", doc.Year))
	}

	if doc.Source != "" {
		lines = append(lines, "Fonte: "+doc.Source)
	}

	if len(doc.Keywords) > 0 {
		lines = append(lines, "", "Palavras-chave: "+strings.Join(doc.Keywords, ", "))
	}

	if doc.Description != "" {
		lines = append(lines, "", "Descrição:", doc.Description)
	}

	if len(doc.Columns) > 0 {
		lines = append(lines, "", fmt.Sprintf("Colunas (%d):", len(doc.Columns)))

		shown := doc.Columns
		if len(shown) > maxDetailCols {
			shown = shown[:maxDetailCols]
		}

		for _, c := range shown {
			lines = append(lines, "- "+c)
		}

		if rest := len(doc.Columns) - len(shown); rest > 0 {
			lines = append(lines, fmt.Sprintf("- ... (+%d colunas)", rest))
		}
	}

	return strings.Join(lines, "\n")
}
