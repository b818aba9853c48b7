// Package resolver decides which single catalog table a piece of free text
// refers to. It scores pasted ids and titles directly, narrows partial titles
// through the search index, and falls back to the conversation context: the
// table already in focus and the suggestions shown in the previous turn.
package resolver

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/entity"
	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// Score ladder for ScoreMatch
const (
	ScoreExactID       = 120
	ScoreExactTitle    = 110
	ScoreIDContains    = 105
	ScoreTitleContains = 90
	ScoreTitleToken    = 12
	ScorePathToken     = 5

	minHintLen  = 3
	minTokenLen = 3
)

// Thresholds for the two resolution passes
const (
	directAmbiguous = 80
	directAccept    = 105
	indexAmbiguous  = 70
	indexAccept     = 90
	ambiguityGap    = 8

	indexCandidates  = 8
	maxAmbiguousDocs = 3
)

var (
	explicitVerbs = []*regexp.Regexp{
		regexp.MustCompile(`^usar\s+`),
		regexp.MustCompile(`^use\s+`),
		regexp.MustCompile(`^continuar\s+com\s+`),
		regexp.MustCompile(`^quero\s+(?:a|essa)\b`),
		regexp.MustCompile(`^selecion(?:ar|a)\s+`),
		regexp.MustCompile(`^select\s+`),
		regexp.MustCompile(`^vai\s+com\s+`),
		regexp.MustCompile(`^vamos\s+com\s+`),
	}

	hintPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^usar\s+(.+)$`),
		regexp.MustCompile(`^use\s+(.+)$`),
		regexp.MustCompile(`^selecionar\s+(.+)$`),
		regexp.MustCompile(`^seleciona\s+(.+)$`),
		regexp.MustCompile(`^select\s+(.+)$`),
		regexp.MustCompile(`^continuar\s+com\s+(.+)$`),
		regexp.MustCompile(`^(?:vai|vamos)\s+com\s+(.+)$`),
		regexp.MustCompile(`^quero\s+(?:a|essa)\s*[:\-]?\s*(.+)$`),
		regexp.MustCompile(`^essa\b\s*[:\-]?\s*(.+)$`),
		regexp.MustCompile(`^tabela\b\s*[:\-]?\s*(.+)$`),
		regexp.MustCompile(`^id\b\s*[:\-]?\s*(.+)$`),
	}
)

// SelectionIntent is the outcome of stripping a selection verb from text
type SelectionIntent struct {
	// Explicit is set when the utterance starts with a selection verb
	Explicit bool
	// Hint is the text to match against ids and titles, normalized
	Hint string
}

// Result is the outcome of a resolution attempt. At most one of Document and
// Ambiguous is set.
type Result struct {
	Document  *catalog.Document
	Explicit  bool
	Ambiguous []catalog.Document
}

// Found reports whether a single table was resolved
func (r Result) Found() bool {
	return r.Document != nil
}

// IsAmbiguous reports whether several close candidates were found
func (r Result) IsAmbiguous() bool {
	return len(r.Ambiguous) > 0
}

// Context is the conversation state consulted by ResolveWithContext
type Context struct {
	SelectedTableID string
	LastSuggestions []catalog.Suggestion
}

// ExtractSelectionIntent detects a leading selection verb and returns the
// remainder as the hint. Without a recognized prefix the whole normalized
// text is the hint, since users often paste a bare id or title.
func ExtractSelectionIntent(text string) SelectionIntent {
	q := textnorm.Normalize(text)

	explicit := false

	for _, re := range explicitVerbs {
		if re.MatchString(q) {
			explicit = true
			break
		}
	}

	for _, re := range hintPatterns {
		if m := re.FindStringSubmatch(q); m != nil {
			if hint := strings.TrimSpace(m[1]); hint != "" {
				return SelectionIntent{Explicit: explicit, Hint: hint}
			}
		}
	}

	return SelectionIntent{Explicit: explicit, Hint: q}
}

// ScoreMatch rates how well hint names doc. Hints under three runes score 0.
func ScoreMatch(hint string, doc catalog.Document) int {
	needle := textnorm.Normalize(hint)
	if len([]rune(needle)) < minHintLen {
		return 0
	}

	id := textnorm.Normalize(doc.ID)
	title := textnorm.Normalize(doc.Title)
	path := textnorm.Normalize(doc.Path)

	switch {
	case needle == id:
		return ScoreExactID
	case needle == title:
		return ScoreExactTitle
	case strings.Contains(id, needle):
		return ScoreIDContains
	case strings.Contains(title, needle):
		return ScoreTitleContains
	}

	score := 0

	for _, tok := range strings.Fields(needle) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}

		if strings.Contains(title, tok) {
			score += ScoreTitleToken
		}

		if strings.Contains(path, tok) {
			score += ScorePathToken
		}
	}

	return score
}

type scored struct {
	doc   catalog.Document
	score int
}

func rank(hint string, docs []catalog.Document, keepZero bool) []scored {
	out := make([]scored, 0, len(docs))

	for _, d := range docs {
		s := ScoreMatch(hint, d)
		if s > 0 || keepZero {
			out = append(out, scored{doc: d, score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})

	return out
}

func ambiguous(list []scored, threshold int) []catalog.Document {
	if len(list) < 2 {
		return nil
	}

	best, second := list[0].score, list[1].score
	if best < threshold || second < threshold || best-second >= ambiguityGap {
		return nil
	}

	n := min(len(list), maxAmbiguousDocs)
	docs := make([]catalog.Document, n)

	for i := range n {
		docs[i] = list[i].doc
	}

	return docs
}

// Resolve maps text to a single document of snap. A direct pass scores every
// document and accepts only strong matches; a second pass re-scores the top
// index hits with lower thresholds. Close scores at either pass yield an
// ambiguous result rather than a silent pick.
func Resolve(text string, snap *catalog.Snapshot) Result {
	intent := ExtractSelectionIntent(text)
	res := Result{Explicit: intent.Explicit}

	if snap == nil || len([]rune(intent.Hint)) < minHintLen {
		return res
	}

	direct := rank(intent.Hint, snap.Documents(), false)
	if docs := ambiguous(direct, directAmbiguous); docs != nil {
		res.Ambiguous = docs
		return res
	}

	if len(direct) > 0 && direct[0].score >= directAccept {
		res.Document = &direct[0].doc
		return res
	}

	candidates := catalog.MatchDocuments(snap.Search(intent.Hint, indexCandidates))

	narrowed := rank(intent.Hint, candidates, true)
	if docs := ambiguous(narrowed, indexAmbiguous); docs != nil {
		res.Ambiguous = docs
		return res
	}

	if len(narrowed) > 0 && narrowed[0].score >= indexAccept {
		res.Document = &narrowed[0].doc
	}

	return res
}

// ResolveWithContext layers conversation context over Resolve. A pointing
// phrase ("essa tabela") resolves to the table in focus; an ordinal, year or
// source hint picks among the last suggestions. An ambiguous text match is
// reported unless one of those entities disambiguates it.
func ResolveWithContext(text string, snap *catalog.Snapshot, ctx Context) Result {
	res := Resolve(text, snap)
	if res.Found() {
		return res
	}

	ents := entity.Extract(text)

	if ctx.SelectedTableID != "" && ents.Deictic && snap != nil {
		if doc, ok := snap.Lookup(ctx.SelectedTableID); ok {
			return Result{Document: &doc, Explicit: true}
		}
	}

	if res.IsAmbiguous() && !ents.Any() {
		return res
	}

	if !ents.Any() && !ents.Deictic {
		return res
	}

	picked, ok := PickSuggestion(ctx.LastSuggestions, ents)
	if !ok {
		return res
	}

	doc := suggestionDocument(picked)
	if snap != nil {
		if found, ok := snap.Lookup(picked.ID); ok {
			doc = found
		}
	}

	return Result{Document: &doc, Explicit: true}
}

// PickSuggestion chooses among the last shown suggestions. A valid 1-based
// ordinal wins outright; otherwise the list is filtered by year and then by
// source substring, and the first survivor is returned, falling back to the
// first suggestion overall.
func PickSuggestion(suggestions []catalog.Suggestion, ents entity.Set) (catalog.Suggestion, bool) {
	if len(suggestions) == 0 {
		return catalog.Suggestion{}, false
	}

	if ents.Ordinal >= 1 && ents.Ordinal <= len(suggestions) {
		return suggestions[ents.Ordinal-1], true
	}

	pool := suggestions

	if ents.Year != 0 {
		pool = filterSuggestions(pool, func(s catalog.Suggestion) bool {
			return s.Year == ents.Year
		})
	}

	if ents.SourceHint != "" {
		hint := textnorm.Normalize(ents.SourceHint)
		pool = filterSuggestions(pool, func(s catalog.Suggestion) bool {
			return strings.Contains(textnorm.Normalize(s.Source), hint)
		})
	}

	if len(pool) > 0 {
		return pool[0], true
	}

	return suggestions[0], true
}

func filterSuggestions(in []catalog.Suggestion, keep func(catalog.Suggestion) bool) []catalog.Suggestion {
	var out []catalog.Suggestion

	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}

	return out
}

func suggestionDocument(s catalog.Suggestion) catalog.Document {
	return catalog.Document{
		ID:     s.ID,
		Title:  s.Title,
		Year:   s.Year,
		Source: s.Source,
		Path:   s.Path,
	}
}
