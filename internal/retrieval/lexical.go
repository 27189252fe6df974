// Package retrieval ranks the chunks of an index against a query by token
// overlap.
package retrieval

import (
	"math"
	"sort"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/tokenizer"
)

const (
	// DefaultTopK is used when a query does not ask for a result count.
	DefaultTopK = 5
	// distinctiveLength is the token length above which a match earns the
	// exact-match bonus.
	distinctiveLength = 4
	exactMatchBonus   = 0.1
)

// Searcher scores chunks with a cosine-like normalized overlap.
type Searcher struct {
	tokenizer domain.Tokenizer
}

// New creates a searcher that tokenizes queries with tok. A nil tokenizer
// uses the default Spanish tokenizer.
func New(tok domain.Tokenizer) *Searcher {
	if tok == nil {
		tok = tokenizer.New()
	}
	return &Searcher{tokenizer: tok}
}

var std = New(nil)

// Search runs the default searcher.
func Search(index *domain.Index, query string, topK int) []domain.ResultItem {
	return std.Search(index, query, topK)
}

// Search returns the topK chunks of index ranked by descending score. Ties
// keep chunk order. A query without tokens scores every chunk 0.
func (s *Searcher) Search(index *domain.Index, query string, topK int) []domain.ResultItem {
	if index == nil || len(index.Chunks) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	qTokens := s.tokenizer.Tokenize(query)
	qset := tokenizer.Set(qTokens)

	items := make([]domain.ResultItem, len(index.Chunks))
	for i, ch := range index.Chunks {
		items[i] = domain.ResultItem{
			ChunkIndex: ch.Metadata.Index,
			Score:      Score(qset, len(qTokens), ch.Tokens),
			Text:       ch.Text,
			TokenCount: len(ch.Tokens),
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if topK > len(items) {
		topK = len(items)
	}
	return items[:topK]
}

// Score counts chunk tokens found in the query set, normalizes by the
// geometric mean of the padded token counts, and adds a bonus per matching
// token longer than four runes.
func Score(qset map[string]struct{}, queryTokenCount int, chunkTokens []string) float64 {
	if len(qset) == 0 {
		return 0
	}
	overlap, exact := 0, 0
	for _, t := range chunkTokens {
		if _, ok := qset[t]; !ok {
			continue
		}
		overlap++
		if utf8.RuneCountInString(t) > distinctiveLength {
			exact++
		}
	}
	norm := math.Sqrt(float64(queryTokenCount+1) * float64(len(chunkTokens)+1))
	return float64(overlap)/norm + float64(exact)*exactMatchBonus
}
