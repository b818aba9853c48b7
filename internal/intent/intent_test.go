package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{input: "recomeçar", want: Reset},
		{input: "Limpar tudo", want: Reset},
		{input: "limpar e trocar tabela", want: Reset},
		{input: "trocar tabela", want: SwitchTable},
		{input: "quero mudar de camada", want: SwitchTable},
		{input: "tem outra tabela de mineração?", want: SwitchTable},
		{input: "ajuda", want: Help},
		{input: "O que você faz?", want: Help},
		{input: "instruções", want: Help},
		{input: "quais são as colunas", want: Details},
		{input: "mostrar colunas da segunda", want: Details},
		{input: "detalhes", want: Details},
		{input: "Descrição da tabela", want: Details},
		{input: "usar uso_solo_2021", want: Select},
		{input: "confirma", want: Select},
		{input: "vamos com a primeira", want: Select},
		{input: "ano 2021", want: Refine},
		{input: "categoria: Mineração", want: Refine},
		{input: "fonte: INPE", want: Refine},
		{input: "source: ICMBio", want: Refine},
		{input: "category: Biodiversidade", want: Refine},
		{input: "year 2021", want: Refine},
		{input: "a segunda", want: SelectImplicit},
		{input: "essa", want: SelectImplicit},
		{input: "a de 2022", want: SelectImplicit},
		{input: "mineração", want: CatalogSearch},
		{input: "ano", want: CatalogSearch},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Classify(tt.input, Context{Mode: ModeCatalog})
			assert.Equal(t, tt.want, got.Intent)
		})
	}
}

func TestClassify_SwitchTableInEveryMode(t *testing.T) {
	for _, mode := range []Mode{ModeCatalog, ModeQueryBuild, ""} {
		got := Classify("trocar tabela", Context{Mode: mode})
		assert.Equal(t, SwitchTable, got.Intent, mode)
		assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	}
}

func TestClassify_FallbackByMode(t *testing.T) {
	catalogMode := Classify("  biodiversidade na amazônia ", Context{Mode: ModeCatalog})
	assert.Equal(t, CatalogSearch, catalogMode.Intent)
	assert.Equal(t, "biodiversidade na amazônia", catalogMode.Query)
	assert.Empty(t, catalogMode.Question)

	queryMode := Classify("qual a área total por estado?", Context{Mode: ModeQueryBuild})
	assert.Equal(t, AskQuestion, queryMode.Intent)
	assert.Equal(t, "qual a área total por estado?", queryMode.Question)
	assert.InDelta(t, 0.8, queryMode.Confidence, 1e-9)
}

func TestClassify_Entities(t *testing.T) {
	got := Classify("Usar a segunda de 2021", Context{})
	assert.Equal(t, Select, got.Intent)
	assert.Equal(t, "usar a segunda de 2021", got.SelectionText)
	assert.Equal(t, 2, got.Entities.Ordinal)
	assert.Equal(t, 2021, got.Entities.Year)

	refine := Classify("fonte: MapBiomas", Context{})
	assert.Equal(t, Refine, refine.Intent)
	assert.Equal(t, "MapBiomas", refine.Entities.SourceHint)
	assert.Empty(t, refine.SelectionText)
}

func TestClassify_Deterministic(t *testing.T) {
	for range 5 {
		assert.Equal(t, Classify("a de 2022", Context{}), Classify("a de 2022", Context{}))
	}
}
