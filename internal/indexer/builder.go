// Package indexer builds per-document indices and registers them.
package indexer

import (
	"time"

	"github.com/google/uuid"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/indexstore"
	"docrag/internal/tokenizer"
)

// Result reports a completed build.
type Result struct {
	Index          *domain.Index
	Stats          domain.IndexStats
	ProcessingTime time.Duration
}

// Builder chunks text and registers the resulting index.
type Builder struct {
	chunker domain.Chunker
	store   indexstore.Storage
	now     func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for CreatedAt and timings.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a builder registering into store.
func New(ch domain.Chunker, store indexstore.Storage, opts ...Option) *Builder {
	if ch == nil {
		ch = chunker.New(nil)
	}
	b := &Builder{chunker: ch, store: store, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build chunks text and registers the index under id, replacing any index
// with the same id. An empty id is replaced by a generated one. Empty text
// yields an index with no chunks. The registry is left untouched when an
// error is returned.
func (b *Builder) Build(id, text string, opts domain.BuildOptions) (Result, error) {
	start := b.now()
	strategy, err := domain.ParseStrategy(string(opts.Strategy), chunker.DefaultStrategy)
	if err != nil {
		return Result{}, domain.NewValidationError(err.Error())
	}
	lang, err := domain.ParseLanguage(string(opts.Language))
	if err != nil {
		return Result{}, domain.NewValidationError(err.Error())
	}
	if id == "" {
		id = uuid.NewString()
	}

	chunkOpts := opts.ChunkOptions
	chunkOpts.Strategy = strategy
	chunks := b.chunker.Chunk(text, chunkOpts)
	stats := ComputeStats(chunks)

	index := &domain.Index{
		ID:           id,
		Chunks:       chunks,
		OriginalText: text,
		CreatedAt:    start,
		Strategy:     strategy,
		Language:     tokenizer.ResolveLanguage(lang, text),
		Stats:        stats,
	}
	b.store.Put(index)

	return Result{Index: index, Stats: stats, ProcessingTime: b.now().Sub(start)}, nil
}

// ComputeStats aggregates token counts over chunks.
func ComputeStats(chunks []domain.Chunk) domain.IndexStats {
	stats := domain.IndexStats{TotalChunks: len(chunks)}
	for _, c := range chunks {
		stats.TotalTokens += len(c.Tokens)
	}
	if stats.TotalChunks > 0 {
		stats.AvgChunkSize = float64(stats.TotalTokens) / float64(stats.TotalChunks)
	}
	return stats
}
