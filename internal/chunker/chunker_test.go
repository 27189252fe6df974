package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func longText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "Frase número %d con algo de contenido relevante para el índice. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestWithDefaults(t *testing.T) {
	opts := WithDefaults(domain.ChunkOptions{})
	assert.Equal(t, DefaultStrategy, opts.Strategy)
	assert.Equal(t, DefaultChunkSize, opts.ChunkSize)
	assert.Equal(t, DefaultOverlap, opts.Overlap)
	assert.Equal(t, DefaultMinChunkSize, opts.MinChunkSize)
	assert.Equal(t, DefaultMaxChunkSize, opts.MaxChunkSize)

	small := WithDefaults(domain.ChunkOptions{ChunkSize: 100})
	assert.Equal(t, 25, small.Overlap)

	none := WithDefaults(domain.ChunkOptions{Overlap: -1})
	assert.Equal(t, 0, none.Overlap)
}

func TestChunkEmptyInput(t *testing.T) {
	c := New(nil)
	for _, s := range []domain.Strategy{domain.StrategyFixed, domain.StrategySemantic, domain.StrategyParagraph, domain.StrategySentence} {
		assert.Empty(t, c.Chunk("", domain.ChunkOptions{Strategy: s}), s)
		assert.Empty(t, c.Chunk("   \n\n  ", domain.ChunkOptions{Strategy: s}), s)
	}
}

func TestChunkShortDocumentIsKept(t *testing.T) {
	c := New(nil)
	text := "El gato come pescado. El perro come carne."
	for _, s := range []domain.Strategy{domain.StrategyFixed, domain.StrategySemantic, domain.StrategyParagraph, domain.StrategySentence} {
		chunks := c.Chunk(text, domain.ChunkOptions{Strategy: s})
		require.Len(t, chunks, 1, s)
		assert.Equal(t, text, chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Metadata.Index)
		assert.Equal(t, []string{"gato", "come", "pescado", "perro", "come", "carne"}, chunks[0].Tokens)
	}
}

func TestFixedCoversText(t *testing.T) {
	text := longText(80)
	n := utf8.RuneCountInString(text)
	opts := domain.ChunkOptions{Strategy: domain.StrategyFixed, ChunkSize: 300, Overlap: 50, MinChunkSize: 60}
	chunks := New(nil).Chunk(text, opts)
	require.NotEmpty(t, chunks)

	runes := []rune(text)
	covered := 0
	prevIndex := -1
	for _, ch := range chunks {
		md := ch.Metadata
		assert.Greater(t, md.Index, prevIndex)
		prevIndex = md.Index
		assert.LessOrEqual(t, md.StartPos, covered, "gap before chunk %d", md.Index)
		assert.LessOrEqual(t, md.EndPos-md.StartPos, opts.ChunkSize)
		assert.Equal(t, strings.TrimSpace(string(runes[md.StartPos:md.EndPos])), ch.Text)
		if md.EndPos > covered {
			covered = md.EndPos
		}
	}
	assert.Equal(t, 0, chunks[0].Metadata.StartPos)
	assert.LessOrEqual(t, n-covered, opts.MinChunkSize)
}

func TestFixedCutsAtSentenceTerminator(t *testing.T) {
	text := longText(20)
	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyFixed, ChunkSize: 200, Overlap: 20, MinChunkSize: 50})
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(ch.Text, "."), ch.Text)
	}
}

func TestFixedTerminatesWhenOverlapExceedsWindow(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10)
	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyFixed, ChunkSize: 10, Overlap: 30, MinChunkSize: 1})
	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), len(text))
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Metadata.StartPos, chunks[i-1].Metadata.StartPos)
	}
}

func TestFixedEarlyTerminatorDoesNotRepeat(t *testing.T) {
	text := strings.Repeat("palabra ", 19) + "fin." + strings.Repeat(" contenido", 200)
	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyFixed})
	require.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 6)

	assert.Equal(t, 156, chunks[0].Metadata.EndPos)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Metadata, chunks[i].Metadata
		assert.Greater(t, cur.StartPos, prev.StartPos)
		assert.Greater(t, cur.EndPos, prev.EndPos, "chunks %d and %d share an end", i-1, i)
	}
	assert.Equal(t, utf8.RuneCountInString(text), chunks[len(chunks)-1].Metadata.EndPos)
}

func TestFixedDropsShortTrailingFragment(t *testing.T) {
	text := strings.Repeat("a", 150) + " fin"
	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyFixed, ChunkSize: 150, Overlap: -1, MinChunkSize: 20})
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Repeat("a", 150), chunks[0].Text)
}

func TestParagraphAccumulation(t *testing.T) {
	p := func(word string) string { return strings.TrimSpace(strings.Repeat(word+" ", 12)) }
	p1, p2, p3 := p("alpha"), p("bravo"), p("charl")
	text := p1 + "\n\n" + p2 + "\n   \n" + p3

	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyParagraph, MaxChunkSize: 150, MinChunkSize: 10})
	require.Len(t, chunks, 2)
	assert.Equal(t, p1+"\n\n"+p2, chunks[0].Text)
	assert.Equal(t, p3, chunks[1].Text)
	assert.Equal(t, 0, chunks[0].Metadata.Index)
	assert.Equal(t, 1, chunks[1].Metadata.Index)
	assert.Equal(t, 0, chunks[0].Metadata.StartPos)
	assert.Equal(t, utf8.RuneCountInString(text), chunks[1].Metadata.EndPos)
	assert.Equal(t, 2, chunks[0].Metadata.ParagraphCount)

	// the trailing paragraph is shorter than the minimum and is dropped
	dropped := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategyParagraph, MaxChunkSize: 150, MinChunkSize: 100})
	require.Len(t, dropped, 1)
	assert.Equal(t, p1+"\n\n"+p2, dropped[0].Text)
}

func TestSemanticMatchesParagraph(t *testing.T) {
	text := longText(10) + "\n\n" + longText(5) + "\n\n" + longText(30)
	c := New(nil)
	opts := domain.ChunkOptions{MaxChunkSize: 800, MinChunkSize: 50}
	opts.Strategy = domain.StrategySemantic
	semantic := c.Chunk(text, opts)
	opts.Strategy = domain.StrategyParagraph
	assert.Equal(t, c.Chunk(text, opts), semantic)
}

func TestSentenceAccumulation(t *testing.T) {
	text := "Uno dos tres. Cuatro cinco seis! Siete ocho nueve?"
	chunks := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategySentence, MaxChunkSize: 30, MinChunkSize: 5})
	require.Len(t, chunks, 3)
	assert.Equal(t, "Uno dos tres.", chunks[0].Text)
	assert.Equal(t, "Cuatro cinco seis!", chunks[1].Text)
	assert.Equal(t, "Siete ocho nueve?", chunks[2].Text)
	assert.Equal(t, 0, chunks[0].Metadata.StartPos)
	assert.Equal(t, 13, chunks[0].Metadata.EndPos)
	assert.Equal(t, 14, chunks[1].Metadata.StartPos)
	for _, ch := range chunks {
		assert.Equal(t, 1, ch.Metadata.SentenceCount)
	}

	merged := New(nil).Chunk(text, domain.ChunkOptions{Strategy: domain.StrategySentence, MaxChunkSize: 100, MinChunkSize: 5})
	require.Len(t, merged, 1)
	assert.Equal(t, text, merged[0].Text)
	assert.Equal(t, 3, merged[0].Metadata.SentenceCount)
}

func TestChunkMetadataCounts(t *testing.T) {
	c := New(nil)
	ch := c.newChunk("Hola. ¿Qué tal?\n\nOtro párrafo...", 4, 10, 40)
	assert.Equal(t, 4, ch.Metadata.Index)
	assert.Equal(t, 3, ch.Metadata.SentenceCount)
	assert.Equal(t, 2, ch.Metadata.ParagraphCount)
	assert.Equal(t, []string{"hola", "tal", "parrafo"}, ch.Tokens)
}
