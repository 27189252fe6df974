// Package chunker splits document text into overlapping chunks under one of
// several interchangeable strategies.
package chunker

import (
	"regexp"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/tokenizer"
)

// Defaults applied to zero-valued ChunkOptions fields, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultOverlap      = 200
	DefaultMinChunkSize = 100
	DefaultMaxChunkSize = 2000
	DefaultStrategy     = domain.StrategySemantic
)

var (
	terminatorRe     = regexp.MustCompile(`[.!?]+`)
	paragraphBreakRe = regexp.MustCompile(`\n[ \t\r]*\n`)
)

// TextChunker implements domain.Chunker.
type TextChunker struct {
	tokenizer domain.Tokenizer
}

var _ domain.Chunker = (*TextChunker)(nil)

// New creates a chunker that tokenizes chunks with tok. A nil tokenizer
// uses the default Spanish tokenizer.
func New(tok domain.Tokenizer) *TextChunker {
	if tok == nil {
		tok = tokenizer.New()
	}
	return &TextChunker{tokenizer: tok}
}

// WithDefaults fills zero fields of opts. A negative overlap disables
// overlap.
func WithDefaults(opts domain.ChunkOptions) domain.ChunkOptions {
	if opts.Strategy == "" {
		opts.Strategy = DefaultStrategy
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Overlap == 0 {
		opts.Overlap = DefaultOverlap
		if opts.Overlap >= opts.ChunkSize {
			opts.Overlap = opts.ChunkSize / 4
		}
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	return opts
}

// Chunk splits text according to opts.Strategy. Semantic chunking has no
// embedding model to segment with and runs the paragraph algorithm.
func (c *TextChunker) Chunk(text string, opts domain.ChunkOptions) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	opts = WithDefaults(opts)
	switch opts.Strategy {
	case domain.StrategyFixed:
		return c.fixed(text, opts)
	case domain.StrategySentence:
		return c.accumulate(splitSentences(text), " ", opts)
	default:
		return c.accumulate(splitParagraphs(text), "\n\n", opts)
	}
}

func (c *TextChunker) newChunk(text string, index, start, end int) domain.Chunk {
	return domain.Chunk{
		Text:   text,
		Tokens: c.tokenizer.Tokenize(text),
		Metadata: domain.ChunkMetadata{
			Index:          index,
			StartPos:       start,
			EndPos:         end,
			SentenceCount:  len(terminatorRe.FindAllStringIndex(text, -1)),
			ParagraphCount: len(paragraphBreakRe.FindAllStringIndex(text, -1)) + 1,
		},
	}
}
