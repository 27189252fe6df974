package domain

import (
	"context"
	"io"
)

// Tokenizer turns free text into normalized word tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Chunker splits a document's text into overlapping segments.
type Chunker interface {
	Chunk(text string, opts ChunkOptions) []Chunk
}

// Extractor produces plain text from a raw document. PDF and DOCX
// pipelines live outside this module and satisfy the same contract.
type Extractor interface {
	Extract(ctx context.Context, name string, r io.Reader) (Extraction, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// RAGService defines the operations exposed to callers of the engine.
type RAGService interface {
	IngestText(ctx context.Context, id, text string, opts *BuildOptions) (IngestResult, error)
	Ask(ctx context.Context, indexID, question string, opts *QueryOptions) (QueryResponse, error)
}
