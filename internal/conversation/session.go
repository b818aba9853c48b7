// Package conversation sequences the catalog search and the query-building
// wizard. A Session holds the state of one conversation and turns each
// utterance into assistant replies.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/draft"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/execution"
	"github.com/kyleking/catalog-chat/internal/intent"
	"github.com/kyleking/catalog-chat/internal/logging"
	"github.com/kyleking/catalog-chat/internal/resolver"
	"github.com/kyleking/catalog-chat/internal/textnorm"
)

const (
	maxSuggestions = 20
	maxListedCols  = 20
	sampleCols     = 3
)

// Runner submits requests to the execution backend
type Runner interface {
	Run(ctx context.Context, req draft.Request) (*execution.Outcome, error)
	Settings() execution.Settings
	SetExplain(on bool)
}

// SettingsSaver persists preference changes made during the conversation
type SettingsSaver interface {
	SaveExplain(on bool) error
}

var explicitSelectionRes = []*regexp.Regexp{
	regexp.MustCompile(`^(usar|use|selecionar|seleciona|select|abrir|open)\b`),
	regexp.MustCompile(`^id\s*[:\-]\s*\S+`),
	regexp.MustCompile(`^(tabela|table)\s*[:\-]\s*\S+`),
}

var detailsLeadRe = regexp.MustCompile(`(?i)^\s*(mostrar detalhes de|detalhes de|detalhar)\s+`)

var skipWords = map[string]bool{
	"nao": true, "n": true, "pular": true, "skip": true, "nenhum": true, "nenhuma": true,
}

var geometryCols = map[string]bool{
	"geom": true, "geometry": true, "the_geom": true, "geometria": true, "shape": true, "wkt": true, "wkb_geometry": true,
}

// Session is one user's conversation. It is not safe for concurrent use.
type Session struct {
	snapshot   *catalog.Snapshot
	catalogErr error
	runner     Runner
	saver      SettingsSaver

	conversationID string
	topK           int

	mode            intent.Mode
	step            Step
	selectedID      string
	lastSuggestions []catalog.Suggestion
	draft           draft.Draft
}

// Option customizes a Session
type Option func(*Session)

// WithCatalogError marks the catalog as unavailable
func WithCatalogError(err error) Option {
	return func(s *Session) {
		s.catalogErr = err
	}
}

// WithSettingsSaver persists explain toggles through saver
func WithSettingsSaver(saver SettingsSaver) Option {
	return func(s *Session) {
		s.saver = saver
	}
}

// WithTopK sets the top_k sent with execution requests
func WithTopK(k int) Option {
	return func(s *Session) {
		s.topK = k
	}
}

// WithConversationID overrides the generated conversation id
func WithConversationID(id string) Option {
	return func(s *Session) {
		s.conversationID = id
	}
}

// NewSession starts a conversation over snap. A nil snapshot without an
// explicit catalog error is reported as an unavailable catalog.
func NewSession(snap *catalog.Snapshot, runner Runner, opts ...Option) *Session {
	s := &Session{
		snapshot:       snap,
		runner:         runner,
		conversationID: uuid.New().String(),
		mode:           intent.ModeCatalog,
		draft:          draft.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.snapshot == nil && s.catalogErr == nil {
		s.catalogErr = errors.New(errors.ErrTypeCatalog, "catálogo não carregado")
	}

	return s
}

// Mode returns the current conversation mode
func (s *Session) Mode() intent.Mode { return s.mode }

// Step returns the current wizard step
func (s *Session) Step() Step { return s.step }

// SelectedTableID returns the table in focus, or ""
func (s *Session) SelectedTableID() string { return s.selectedID }

// LastSuggestions returns the suggestions shown most recently
func (s *Session) LastSuggestions() []catalog.Suggestion {
	return append([]catalog.Suggestion(nil), s.lastSuggestions...)
}

// Draft returns the query under construction
func (s *Session) Draft() draft.Draft { return s.draft }

// ConversationID returns the id sent with execution requests
func (s *Session) ConversationID() string { return s.conversationID }

// Greeting returns the opening replies
func (s *Session) Greeting() []Reply {
	if s.catalogErr != nil {
		return []Reply{textReply(msgGreeting, nil), s.catalogUnavailable()}
	}

	return []Reply{
		textReply(msgGreeting, catalogPrompts()),
		textReply(fmt.Sprintf("Catálogo carregado (%d tabelas ativas).", s.snapshot.Len()), nil),
	}
}

// Handle processes one utterance and returns the replies to show. Empty
// input yields no replies.
func (s *Session) Handle(ctx context.Context, text string) []Reply {
	q := strings.TrimSpace(text)
	if q == "" {
		return nil
	}

	normalized := textnorm.Normalize(q)

	logging.WithFields(map[string]interface{}{
		"mode":  s.mode,
		"step":  s.step.String(),
		"table": s.selectedID,
	}).Debug("Handling utterance")

	if s.catalogErr != nil {
		switch intent.Classify(q, intent.Context{Mode: s.mode}).Intent {
		case intent.Reset:
			return s.reset()
		case intent.Help:
			return s.help()
		default:
			return []Reply{s.catalogUnavailable()}
		}
	}

	if normalized == "nova consulta" {
		if s.selectedID == "" {
			return []Reply{textReply(msgNoTableForQuery, catalogPrompts())}
		}

		return s.restartWizard("")
	}

	if s.mode == intent.ModeQueryBuild {
		return s.handleWizard(ctx, q, normalized)
	}

	return s.handleCatalog(q)
}

func (s *Session) catalogUnavailable() Reply {
	return errorReply("Não consegui carregar o catálogo: "+errors.UserMessage(s.catalogErr),
		[]string{"recomeçar", "tentar novamente"})
}

func (s *Session) handleCatalog(q string) []Reply {
	res := intent.Classify(q, intent.Context{Mode: s.mode})

	logging.WithFields(map[string]interface{}{
		"intent":     res.Intent,
		"confidence": res.Confidence,
	}).Debug("Classified utterance")

	switch res.Intent {
	case intent.Reset:
		return s.reset()
	case intent.Help:
		return s.help()
	case intent.SwitchTable:
		return s.backToCatalog()
	case intent.Details:
		return s.details(q)
	case intent.Select:
		return s.selectTable(q, false)
	case intent.SelectImplicit:
		return s.selectTable(q, true)
	case intent.Refine:
		return s.refine(q, res)
	default:
		return s.search(q)
	}
}

func (s *Session) reset() []Reply {
	s.mode = intent.ModeCatalog
	s.step = StepSelect
	s.selectedID = ""
	s.lastSuggestions = nil
	s.draft = draft.New()

	return []Reply{textReply(msgReset, catalogPrompts())}
}

func (s *Session) help() []Reply {
	return []Reply{textReply(msgHelp,
		[]string{"mineração", "detalhar", "todas as colunas", "colunas: processo, ano, area_ha"})}
}

func (s *Session) backToCatalog() []Reply {
	s.mode = intent.ModeCatalog
	s.step = StepSelect
	s.selectedID = ""
	s.draft = draft.New()

	return []Reply{textReply(msgBackToCatalog, catalogPrompts())}
}

func (s *Session) resolverContext() resolver.Context {
	return resolver.Context{SelectedTableID: s.selectedID, LastSuggestions: s.lastSuggestions}
}

// details shows the table named after a "detalhes de" lead, else the one the
// resolver picks, else the focused table
func (s *Session) details(q string) []Reply {
	if rest := detailsLeadRe.ReplaceAllString(q, ""); rest != q {
		if doc, ok := s.snapshot.FindID(rest); ok {
			return []Reply{detailsReply(doc)}
		}
	}

	res := resolver.ResolveWithContext(q, s.snapshot, s.resolverContext())

	var doc catalog.Document

	switch {
	case res.Found():
		doc = *res.Document
	case s.selectedID != "":
		found, ok := s.snapshot.Lookup(s.selectedID)
		if !ok {
			return []Reply{textReply(msgMissingDoc, catalogPrompts())}
		}

		doc = found
	case len(s.lastSuggestions) == 1:
		found, ok := s.snapshot.Lookup(s.lastSuggestions[0].ID)
		if !ok {
			return []Reply{textReply(msgMissingDoc, catalogPrompts())}
		}

		doc = found
	default:
		return []Reply{textReply(msgDetailsFailed, catalogPrompts())}
	}

	return []Reply{detailsReply(doc)}
}

func detailsReply(doc catalog.Document) Reply {
	return Reply{
		Kind:    KindDetails,
		Text:    catalog.FormatDetails(doc),
		Prompts: []string{"nova consulta", "todas as colunas", "colunas: processo, ano, area_ha", "preview", "trocar tabela"},
	}
}

// selectTable resolves q against the catalog and the last suggestions. An
// implicit selection that resolves to nothing is treated as a search.
func (s *Session) selectTable(q string, implicit bool) []Reply {
	res := resolver.ResolveWithContext(q, s.snapshot, s.resolverContext())

	switch {
	case res.IsAmbiguous():
		return s.ambiguous(res.Ambiguous)
	case res.Found():
		return s.startWizard(*res.Document)
	case implicit:
		return s.search(q)
	default:
		return []Reply{textReply(msgSelectFailed, catalogPrompts())}
	}
}

func (s *Session) ambiguous(docs []catalog.Document) []Reply {
	suggestions := make([]catalog.Suggestion, 0, len(docs))
	for _, d := range docs {
		suggestions = append(suggestions, catalog.NewSuggestion(d, reasonAmbiguous))
	}

	s.lastSuggestions = suggestions

	return []Reply{{
		Kind:        KindSuggestions,
		Text:        msgAmbiguous,
		Suggestions: suggestions,
		Prompts: []string{
			"usar " + suggestions[0].ID,
			"mostrar detalhes de " + suggestions[0].ID,
			"trocar tabela",
		},
	}}
}

// refine narrows the last suggestions by year, category and source. Without
// survivors it searches the catalog instead.
func (s *Session) refine(q string, res intent.Result) []Reply {
	ents := res.Entities
	pool := s.lastSuggestions

	if ents.Year != 0 {
		pool = filterSuggestions(pool, func(sg catalog.Suggestion) bool { return sg.Year == ents.Year })
	}

	if ents.CategoryHint != "" {
		hint := textnorm.Normalize(ents.CategoryHint)
		pool = filterSuggestions(pool, func(sg catalog.Suggestion) bool {
			return strings.Contains(textnorm.Normalize(sg.Category()), hint)
		})
	}

	if ents.SourceHint != "" {
		hint := textnorm.Normalize(ents.SourceHint)
		pool = filterSuggestions(pool, func(sg catalog.Suggestion) bool {
			return strings.Contains(textnorm.Normalize(sg.Source), hint)
		})
	}

	if len(pool) == 0 {
		return s.search(q)
	}

	s.lastSuggestions = pool

	return []Reply{{
		Kind:        KindSuggestions,
		Text:        msgRefined,
		Suggestions: pool,
		Prompts:     s.facetPrompts(pool),
	}}
}

func filterSuggestions(in []catalog.Suggestion, keep func(catalog.Suggestion) bool) []catalog.Suggestion {
	var out []catalog.Suggestion

	for _, sg := range in {
		if keep(sg) {
			out = append(out, sg)
		}
	}

	return out
}

func (s *Session) facetPrompts(suggestions []catalog.Suggestion) []string {
	docs := make([]catalog.Document, 0, len(suggestions))

	for _, sg := range suggestions {
		if doc, ok := s.snapshot.Lookup(sg.ID); ok {
			docs = append(docs, doc)
		}
	}

	facets := catalog.RefinementFacets(docs)
	if len(facets) == 0 {
		return catalogPrompts()
	}

	prompts := make([]string, len(facets))
	for i, f := range facets {
		prompts[i] = f.Label()
	}

	return prompts
}

func looksLikeExplicitSelection(q string) bool {
	n := textnorm.Normalize(q)

	for _, re := range explicitSelectionRes {
		if re.MatchString(n) {
			return true
		}
	}

	return false
}

// search selects a pasted id directly, resolves explicit selection phrasing,
// and otherwise lists the top index matches with their explanations
func (s *Session) search(q string) []Reply {
	if doc, ok := s.snapshot.FindID(q); ok {
		return s.startWizard(doc)
	}

	if looksLikeExplicitSelection(q) {
		res := resolver.Resolve(q, s.snapshot)

		if res.IsAmbiguous() {
			return s.ambiguous(res.Ambiguous)
		}

		if res.Found() {
			return s.startWizard(*res.Document)
		}
	}

	matches := s.snapshot.Search(q, maxSuggestions)

	if len(matches) == 0 {
		s.lastSuggestions = nil
		return []Reply{textReply(msgNoResults, catalogPrompts())}
	}

	suggestions := make([]catalog.Suggestion, len(matches))
	for i, m := range matches {
		suggestions[i] = catalog.NewSuggestion(m.Document, catalog.ExplainMatch(q, m.Document))
	}

	s.lastSuggestions = suggestions

	prompts := catalogPrompts()
	if facets := catalog.RefinementFacets(catalog.MatchDocuments(matches)); len(facets) > 0 {
		prompts = make([]string, len(facets))
		for i, f := range facets {
			prompts[i] = f.Label()
		}
	}

	return []Reply{{
		Kind:        KindSuggestions,
		Text:        msgResults,
		Suggestions: suggestions,
		Prompts:     prompts,
	}}
}
