package retrieval

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/tokenizer"
)

func indexOf(texts ...string) *domain.Index {
	c := chunker.New(nil)
	idx := &domain.Index{ID: "doc"}
	for i, text := range texts {
		ch := c.Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyParagraph})
		first := ch[0]
		first.Metadata.Index = i
		idx.Chunks = append(idx.Chunks, first)
	}
	return idx
}

func TestSearchRanksByOverlap(t *testing.T) {
	idx := indexOf(
		"El perro come carne todos los días.",
		"El gato come pescado fresco.",
		"La casa tiene jardín.",
	)
	res := Search(idx, "qué come el gato", 2)
	require.Len(t, res, 2)
	assert.Equal(t, 1, res[0].ChunkIndex)
	assert.Contains(t, res[0].Text, "gato")
	assert.Contains(t, res[0].Text, "pescado")
	assert.Greater(t, res[0].Score, res[1].Score)
	assert.Equal(t, 4, res[0].TokenCount)
}

func TestSearchScoreFormula(t *testing.T) {
	idx := indexOf("El gato come pescado. El perro come carne.")
	res := Search(idx, "qué come el gato", 5)
	require.Len(t, res, 1)
	// query tokens {come, gato}; chunk has 6 tokens, 3 of them match, none longer than 4
	assert.InDelta(t, 3/math.Sqrt(3*7), res[0].Score, 1e-9)
}

func TestSearchExactMatchBonus(t *testing.T) {
	qset := tokenizer.Set([]string{"pescado"})
	withBonus := Score(qset, 1, []string{"pescado"})
	assert.InDelta(t, 1/math.Sqrt(2*2)+0.1, withBonus, 1e-9)

	short := tokenizer.Set([]string{"gato"})
	assert.InDelta(t, 1/math.Sqrt(2*2), Score(short, 1, []string{"gato"}), 1e-9)
}

func TestSearchEmptyIndex(t *testing.T) {
	assert.Empty(t, Search(&domain.Index{ID: "empty"}, "gato", 5))
	assert.Empty(t, Search(nil, "gato", 5))
}

func TestSearchQueryWithoutTokens(t *testing.T) {
	idx := indexOf("primer bloque de texto", "segundo bloque de texto", "tercer bloque de texto")
	res := Search(idx, "¿y el de la?", 2)
	require.Len(t, res, 2)
	assert.Equal(t, 0, res[0].ChunkIndex)
	assert.Equal(t, 1, res[1].ChunkIndex)
	for _, r := range res {
		assert.Zero(t, r.Score)
	}
}

func TestSearchTiesKeepChunkOrder(t *testing.T) {
	idx := indexOf("manzana roja", "manzana verde", "manzana amarilla")
	res := Search(idx, "manzana", 0)
	require.Len(t, res, 3)
	assert.Equal(t, 0, res[0].ChunkIndex)
	assert.InDelta(t, res[0].Score, res[1].Score, 1e-12)
	assert.Equal(t, 1, res[1].ChunkIndex)
	assert.Equal(t, 2, res[2].ChunkIndex)
}

func TestScoreMonotonicUnderQueryTokenAppend(t *testing.T) {
	query := "contrato arrendamiento vivienda"
	qTokens := tokenizer.Tokenize(query)
	qset := tokenizer.Set(qTokens)
	base := "El contrato regula el uso del local comercial y las obligaciones del inquilino."

	prev := Score(qset, len(qTokens), tokenizer.Tokenize(base))
	text := base
	for i := 0; i < 5; i++ {
		text += " " + strings.Join(qTokens, " ")
		next := Score(qset, len(qTokens), tokenizer.Tokenize(text))
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}
