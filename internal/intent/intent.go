// Package intent labels each utterance with one discrete intent. Rules are
// tried in a fixed order and the first match wins; confidences are constants
// per rule, kept for logging only.
package intent

import (
	"regexp"
	"strings"

	"github.com/kyleking/catalog-chat/internal/entity"
	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// Intent is the label assigned to an utterance
type Intent string

const (
	Reset          Intent = "RESET"
	SwitchTable    Intent = "SWITCH_TABLE"
	Help           Intent = "HELP"
	Details        Intent = "DETAILS"
	Select         Intent = "SELECT"
	Refine         Intent = "REFINE"
	SelectImplicit Intent = "SELECT_IMPLICIT"
	AskQuestion    Intent = "ASK_QUESTION"
	CatalogSearch  Intent = "CATALOG_SEARCH"
)

// Mode is the conversation mode the classifier falls back on
type Mode string

const (
	ModeCatalog    Mode = "CATALOG"
	ModeQueryBuild Mode = "QUERY_BUILD"
)

// Context is the conversation state the classifier may consult
type Context struct {
	Mode Mode
}

// Result is a classified utterance
type Result struct {
	Intent     Intent
	Confidence float64
	Entities   entity.Set

	// SelectionText is the normalized utterance, set for Select
	SelectionText string
	// Query is the raw trimmed text, set for CatalogSearch
	Query string
	// Question is the raw trimmed text, set for AskQuestion
	Question string
}

type input struct {
	raw        string
	normalized string
	entities   entity.Set
}

type rule struct {
	intent     Intent
	confidence float64
	matches    func(in input) bool
}

func anyPattern(patterns ...*regexp.Regexp) func(in input) bool {
	return func(in input) bool {
		for _, re := range patterns {
			if re.MatchString(in.normalized) {
				return true
			}
		}

		return false
	}
}

var refineMention = anyPattern(
	regexp.MustCompile(`\b(ano|year)\b`),
	regexp.MustCompile(`\b(categoria|category)\b`),
	regexp.MustCompile(`\b(fonte|source)\b`),
)

// rules are evaluated in order; the first match wins
var rules = []rule{
	{
		intent:     Reset,
		confidence: 0.99,
		matches:    anyPattern(regexp.MustCompile(`\b(recomecar|resetar|limpar)\b`)),
	},
	{
		intent:     SwitchTable,
		confidence: 0.95,
		matches: anyPattern(
			regexp.MustCompile(`\b(trocar|mudar|alterar)\b.*\b(tabela|camada|fonte)\b`),
			regexp.MustCompile(`\b(outra|outras)\b.*\b(tabela|camada|fonte)\b`),
			regexp.MustCompile(`^trocar tabela$`),
		),
	},
	{
		intent:     Help,
		confidence: 0.85,
		matches:    anyPattern(regexp.MustCompile(`\b(ajuda|help|como usar|o que voce faz|instrucoes|instrucao)\b`)),
	},
	{
		intent:     Details,
		confidence: 0.9,
		matches: anyPattern(
			regexp.MustCompile(`\b(detalhes|detalhar|colunas|campos|schema|descricao)\b`),
			regexp.MustCompile(`\bquais sao as colunas\b`),
			regexp.MustCompile(`\bmostra(r)? (as )?colunas\b`),
		),
	},
	{
		intent:     Select,
		confidence: 0.9,
		matches: anyPattern(
			regexp.MustCompile(`^(usar|use|selecionar|seleciona|confirmar|confirma)\b`),
			regexp.MustCompile(`\b(vai com|vamos com)\b`),
		),
	},
	{
		intent:     Refine,
		confidence: 0.7,
		matches: func(in input) bool {
			e := in.entities
			return refineMention(in) && (e.Year != 0 || e.SourceHint != "" || e.CategoryHint != "")
		},
	},
	{
		intent:     SelectImplicit,
		confidence: 0.6,
		matches: func(in input) bool {
			return in.entities.Deictic || in.entities.Any()
		},
	},
}

// Classify labels text. It is total: text matching no rule becomes a
// question in query-building mode and a catalog search otherwise.
func Classify(text string, ctx Context) Result {
	in := input{
		raw:        strings.TrimSpace(text),
		normalized: textnorm.Normalize(text),
		entities:   entity.Extract(text),
	}

	for _, r := range rules {
		if !r.matches(in) {
			continue
		}

		res := Result{Intent: r.intent, Confidence: r.confidence, Entities: in.entities}
		if r.intent == Select {
			res.SelectionText = in.normalized
		}

		return res
	}

	if ctx.Mode == ModeQueryBuild {
		return Result{Intent: AskQuestion, Confidence: 0.8, Entities: in.entities, Question: in.raw}
	}

	return Result{Intent: CatalogSearch, Confidence: 0.7, Entities: in.entities, Query: in.raw}
}
