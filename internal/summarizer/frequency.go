// Package summarizer builds short extractive previews of indexed documents.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/tokenizer"
)

// DefaultMaxSentences is used when Summarize is given a non-positive limit.
const DefaultMaxSentences = 3

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// FrequencySummarizer ranks sentences by the normalized frequency of their
// content words.
type FrequencySummarizer struct {
	tokenizer domain.Tokenizer
}

// NewFrequencySummarizer creates a summarizer. A nil tokenizer uses the
// default Spanish one.
func NewFrequencySummarizer(tok domain.Tokenizer) *FrequencySummarizer {
	if tok == nil {
		tok = tokenizer.New()
	}
	return &FrequencySummarizer{tokenizer: tok}
}

// Summarize returns up to maxSentences sentences of text in their original
// order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = s.tokenizer.Tokenize(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		sum := 0.0
		for _, tok := range tokens[i] {
			sum += freq[tok] / maxF
		}
		// long sentences would otherwise always win
		if n := len(tokens[i]); n > 0 {
			sum /= math.Sqrt(float64(n))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// Sentences splits text on terminal punctuation. A trailing fragment without
// a terminator is kept.
func Sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
