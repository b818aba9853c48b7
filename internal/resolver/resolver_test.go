package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/entity"
	"github.com/kyleking/catalog-chat/internal/testutil"
)

func docIDs(docs []catalog.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}

	return out
}

func suggestionsFor(t *testing.T, snap *catalog.Snapshot, ids ...string) []catalog.Suggestion {
	t.Helper()

	out := make([]catalog.Suggestion, 0, len(ids))

	for _, id := range ids {
		doc, ok := snap.Lookup(id)
		require.True(t, ok, id)
		out = append(out, catalog.NewSuggestion(doc, ""))
	}

	return out
}

func TestExtractSelectionIntent(t *testing.T) {
	tests := []struct {
		input    string
		explicit bool
		hint     string
	}{
		{input: "usar uso_solo_2021", explicit: true, hint: "uso_solo_2021"},
		{input: "Use Processos Minerários", explicit: true, hint: "processos minerarios"},
		{input: "continuar com ucs_federais", explicit: true, hint: "ucs_federais"},
		{input: "quero a: desmatamento", explicit: true, hint: "desmatamento"},
		{input: "selecionar  uso do solo", explicit: true, hint: "uso do solo"},
		{input: "vamos com a primeira", explicit: true, hint: "a primeira"},
		{input: "tabela: ucs_federais", explicit: false, hint: "ucs_federais"},
		{input: "id - mineracao_processos", explicit: false, hint: "mineracao_processos"},
		{input: "  Uso do Solo 2020 ", explicit: false, hint: "uso do solo 2020"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractSelectionIntent(tt.input)
			assert.Equal(t, tt.explicit, got.Explicit)
			assert.Equal(t, tt.hint, got.Hint)
		})
	}
}

func TestScoreMatch_Ladder(t *testing.T) {
	doc, ok := testutil.SampleSnapshot().Lookup("uso_solo_2020")
	require.True(t, ok)

	tests := []struct {
		hint string
		want int
	}{
		{hint: "uso_solo_2020", want: ScoreExactID},
		{hint: "USO DO SOLO 2020", want: ScoreExactTitle},
		{hint: "solo_2020", want: ScoreIDContains},
		{hint: "do solo", want: ScoreTitleContains},
		{hint: "solo cobertura", want: ScoreTitleToken + ScorePathToken},
		{hint: "território solo", want: ScorePathToken + ScoreTitleToken},
		{hint: "ab", want: 0},
		{hint: "", want: 0},
		{hint: "zzz", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreMatch(tt.hint, doc))
		})
	}

	assert.Greater(t, ScoreExactID, ScoreExactTitle)
	assert.Greater(t, ScoreExactTitle, ScoreTitleContains)
}

func TestResolve_AmbiguousTitles(t *testing.T) {
	snap := testutil.SampleSnapshot()

	res := Resolve("uso do solo", snap)

	assert.False(t, res.Found())
	require.True(t, res.IsAmbiguous())
	assert.Equal(t, []string{"uso_solo_2020", "uso_solo_2021"}, docIDs(res.Ambiguous))
}

func TestResolve_DirectMatches(t *testing.T) {
	snap := testutil.SampleSnapshot()

	tests := []struct {
		input    string
		wantID   string
		explicit bool
	}{
		{input: "usar uso_solo_2021", wantID: "uso_solo_2021", explicit: true},
		{input: "Processos Minerários", wantID: "mineracao_processos"},
		{input: "uso do solo 2021", wantID: "uso_solo_2021"},
		{input: "id: desmatamento_prodes", wantID: "desmatamento_prodes"},
		{input: "prodes", wantID: "desmatamento_prodes"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := Resolve(tt.input, snap)
			require.True(t, res.Found())
			assert.Equal(t, tt.wantID, res.Document.ID)
			assert.Equal(t, tt.explicit, res.Explicit)
			assert.Empty(t, res.Ambiguous)
		})
	}
}

func TestResolve_IndexPassAcceptsPartialTitle(t *testing.T) {
	snap := testutil.SampleSnapshot()

	// Title containment scores 90: too weak for the direct pass, enough once
	// the index has narrowed the candidates
	res := Resolve("solo 2020", snap)
	require.True(t, res.Found())
	assert.Equal(t, "uso_solo_2020", res.Document.ID)
}

func TestResolve_NoMatch(t *testing.T) {
	snap := testutil.SampleSnapshot()

	for _, input := range []string{"ab", "", "xyz inexistente", "biodiversidade marinha"} {
		res := Resolve(input, snap)
		assert.False(t, res.Found(), input)
		assert.False(t, res.IsAmbiguous(), input)
	}

	assert.False(t, Resolve("uso_solo_2020", nil).Found())
}

func TestResolve_NeverBothDocumentAndAmbiguity(t *testing.T) {
	snap := testutil.SampleSnapshot()

	inputs := []string{
		"uso do solo", "uso", "solo", "usar uso do solo", "mineração",
		"unidades", "2021", "uso_solo", "desmatamento prodes", "federais",
	}

	for _, input := range inputs {
		res := Resolve(input, snap)
		assert.False(t, res.Found() && res.IsAmbiguous(), input)
	}
}

func TestResolveWithContext_Deictic(t *testing.T) {
	snap := testutil.SampleSnapshot()
	ctx := Context{SelectedTableID: "ucs_federais"}

	for _, input := range []string{"essa tabela", "essa", "nessa camada"} {
		res := ResolveWithContext(input, snap, ctx)
		require.True(t, res.Found(), input)
		assert.Equal(t, "ucs_federais", res.Document.ID)
		assert.True(t, res.Explicit)
	}
}

func TestResolveWithContext_DeicticWithoutFocusUsesSuggestions(t *testing.T) {
	snap := testutil.SampleSnapshot()
	ctx := Context{LastSuggestions: suggestionsFor(t, snap, "desmatamento_prodes", "uso_solo_2021")}

	res := ResolveWithContext("essa", snap, ctx)
	require.True(t, res.Found())
	assert.Equal(t, "desmatamento_prodes", res.Document.ID)
}

func TestResolveWithContext_LastSuggestions(t *testing.T) {
	snap := testutil.SampleSnapshot()
	last := suggestionsFor(t, snap, "uso_solo_2020", "uso_solo_2021", "desmatamento_prodes")

	tests := []struct {
		input  string
		wantID string
	}{
		{input: "a segunda", wantID: "uso_solo_2021"},
		{input: "3", wantID: "desmatamento_prodes"},
		{input: "a de 2021", wantID: "uso_solo_2021"},
		{input: "fonte: inpe", wantID: "desmatamento_prodes"},
		{input: "fonte: mapbiomas", wantID: "uso_solo_2020"},
		{input: "a primeira de 2021", wantID: "uso_solo_2020"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := ResolveWithContext(tt.input, snap, Context{LastSuggestions: last})
			require.True(t, res.Found())
			assert.Equal(t, tt.wantID, res.Document.ID)
		})
	}
}

func TestResolveWithContext_AmbiguityWithoutEntitiesIsReported(t *testing.T) {
	snap := testutil.SampleSnapshot()
	last := suggestionsFor(t, snap, "desmatamento_prodes")

	res := ResolveWithContext("uso do solo", snap, Context{LastSuggestions: last})

	assert.False(t, res.Found())
	assert.True(t, res.IsAmbiguous())
}

func TestResolveWithContext_PlainTextDoesNotPickSuggestion(t *testing.T) {
	snap := testutil.SampleSnapshot()
	last := suggestionsFor(t, snap, "desmatamento_prodes")

	res := ResolveWithContext("usar algo que nao existe", snap, Context{LastSuggestions: last})
	assert.False(t, res.Found())
}

func TestResolveWithContext_SuggestionMissingFromSnapshot(t *testing.T) {
	snap := testutil.SampleSnapshot()
	last := []catalog.Suggestion{{ID: "gone", Title: "Removida", Year: 2019}}

	res := ResolveWithContext("a primeira", snap, Context{LastSuggestions: last})
	require.True(t, res.Found())
	assert.Equal(t, "gone", res.Document.ID)
	assert.Equal(t, 2019, res.Document.Year)
}

func TestPickSuggestion(t *testing.T) {
	last := []catalog.Suggestion{
		{ID: "a", Year: 2020, Source: "MapBiomas"},
		{ID: "b", Year: 2021, Source: "MapBiomas"},
		{ID: "c", Year: 2021, Source: "INPE"},
	}

	tests := []struct {
		name   string
		ents   entity.Set
		wantID string
	}{
		{name: "ordinal wins over year", ents: entity.Set{Ordinal: 1, Year: 2021}, wantID: "a"},
		{name: "ordinal out of range falls through", ents: entity.Set{Ordinal: 9, Year: 2021}, wantID: "b"},
		{name: "year then source", ents: entity.Set{Year: 2021, SourceHint: "inpe"}, wantID: "c"},
		{name: "no survivor falls back to first", ents: entity.Set{Year: 1999}, wantID: "a"},
		{name: "source accents ignored", ents: entity.Set{SourceHint: "MAPBIÔMAS"}, wantID: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickSuggestion(last, tt.ents)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	_, ok := PickSuggestion(nil, entity.Set{Ordinal: 1})
	assert.False(t, ok)
}
