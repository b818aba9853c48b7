package catalog_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/testutil"
)

func ids(matches []catalog.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Document.ID
	}

	return out
}

func TestIndex_ExactTermsRankAndTieBreak(t *testing.T) {
	snap := testutil.SampleSnapshot()

	matches := snap.Search("uso solo", 10)
	require.GreaterOrEqual(t, len(matches), 2)

	// Identical rows differ only by year; catalog order breaks the tie
	assert.Equal(t, []string{"uso_solo_2020", "uso_solo_2021"}, ids(matches)[:2])
	assert.Equal(t, 1, matches[0].Rank)
	assert.Equal(t, 2, matches[1].Rank)
	assert.Equal(t, matches[0].Score, matches[1].Score)
}

func TestIndex_YearNarrowsResults(t *testing.T) {
	snap := testutil.SampleSnapshot()

	matches := snap.Search("uso solo 2021", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "uso_solo_2021", matches[0].Document.ID)
}

func TestIndex_DiacriticInsensitive(t *testing.T) {
	snap := testutil.SampleSnapshot()

	for _, q := range []string{"mineração", "MINERACAO", "Mineracão"} {
		matches := snap.Search(q, 5)
		require.NotEmpty(t, matches, q)
		assert.Equal(t, "mineracao_processos", matches[0].Document.ID, q)
	}
}

func TestIndex_PrefixMatch(t *testing.T) {
	snap := testutil.SampleSnapshot()

	matches := snap.Search("minera", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "mineracao_processos", matches[0].Document.ID)
}

func TestIndex_FuzzyMatch(t *testing.T) {
	snap := testutil.SampleSnapshot()

	matches := snap.Search("desmatamneto", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "desmatamento_prodes", matches[0].Document.ID)

	exact := snap.Search("desmatamento", 5)
	require.NotEmpty(t, exact)
	assert.Greater(t, exact[0].Score, matches[0].Score)
}

func TestIndex_CoverageFavoursDocumentsMatchingMoreTerms(t *testing.T) {
	snap := testutil.SampleSnapshot()

	matches := snap.Search("area_ha processo", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "mineracao_processos", matches[0].Document.ID)
}

func TestIndex_LimitAndEmptyQueries(t *testing.T) {
	snap := testutil.SampleSnapshot()

	assert.Len(t, snap.Search("2021", 1), 1)
	assert.Nil(t, snap.Search("   ", 10))
	assert.Nil(t, snap.Search("?!", 10))
	assert.Empty(t, snap.Search("zzzzqqq", 10))

	all := snap.Search("area", 0)
	limited := snap.Search("area", 2)
	assert.Greater(t, len(all), len(limited))
}

func TestIndex_EmptyCatalog(t *testing.T) {
	idx := catalog.BuildIndex(nil)

	assert.Zero(t, idx.Len())
	assert.Nil(t, idx.Search("anything", 10))
}

func TestIndex_MemoizedResultsAreIsolated(t *testing.T) {
	snap := testutil.SampleSnapshot()

	first := snap.Search("cobertura", 10)
	require.NotEmpty(t, first)
	first[0].Document.ID = "mutated"

	second := snap.Search("cobertura", 10)
	assert.NotEqual(t, "mutated", second[0].Document.ID)
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	snap := testutil.SampleSnapshot()
	queries := []string{"uso solo", "mineracao", "desmatamento", "2022", "conservacao"}

	testutil.RunConcurrent(t, testutil.TestWorkers, func(workerID int) {
		for i := range 20 {
			q := queries[(workerID+i)%len(queries)]
			matches := snap.Search(q, 3)
			if len(matches) == 0 {
				t.Errorf("no matches for %q", q)
			}

			for rank, m := range matches {
				if m.Rank != rank+1 {
					t.Errorf("rank %d for position %d", m.Rank, rank)
				}
			}
		}
	})
}

func TestSnapshot_ConcurrentLookup(t *testing.T) {
	snap := testutil.SampleSnapshot()

	testutil.AssertNoRaces(t, func() {
		if _, ok := snap.FindID("UCS_FEDERAIS"); !ok {
			t.Error("ucs_federais not found")
		}

		snap.Search("cobertura da terra", 5)
	}, testutil.TestWorkers)
}

func BenchmarkIndex_Search(b *testing.B) {
	rows := make([]catalog.Row, 0, 2000)
	for i := range 2000 {
		rows = append(rows, testutil.NewRow(fmt.Sprintf("tabela_%d", i),
			testutil.WithTitle(fmt.Sprintf("Tabela %d de uso do solo", i)),
			testutil.WithYear(2000+i%25),
			testutil.WithKeywords("uso do solo; cobertura; mineração"),
		))
	}

	snap := catalog.NewSnapshot(rows)

	b.ResetTimer()

	for i := range b.N {
		snap.Search(fmt.Sprintf("cobertura %d", 2000+i%25), 20)
	}
}
