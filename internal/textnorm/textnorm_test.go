package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Mineração", "mineracao"},
		{"  ÁREA Protegida  ", "area protegida"},
		{"Unidades de Conservação", "unidades de conservacao"},
		{"já está", "ja esta"},
		{"", ""},
		{"ano_2021", "ano_2021"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestFoldKeepsWhitespace(t *testing.T) {
	assert.Equal(t, " acao ", Fold(" Ação "))
}

func TestTokensAndWords(t *testing.T) {
	assert.Equal(t, []string{"uso", "do", "solo"}, Tokens("  Uso do   Solo "))
	assert.Equal(t, []string{"categoria", "mineracao", "2022"}, Words("Categoria > Mineração (2022)"))
	assert.Empty(t, Tokens("   "))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("de"))
	assert.True(t, IsStopWord("não"))
	assert.True(t, IsStopWord("nao"))
	assert.True(t, IsStopWord("À"))
	assert.False(t, IsStopWord("solo"))
}

func TestUsefulTokens(t *testing.T) {
	assert.Equal(t, []string{"uso", "solo", "rj"}, UsefulTokens("uso do solo no RJ"))
	assert.Empty(t, UsefulTokens("a o de"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, SplitList(" a; b ,c| d "))
	assert.Equal(t, []string{"solo"}, SplitList(";;solo,,"))
	assert.Empty(t, SplitList(""))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Dedupe([]string{"b", "a", "b", "a"}))
}
