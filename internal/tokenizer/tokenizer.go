// Package tokenizer normalizes text into the word tokens used for lexical
// scoring: lower-cased, diacritics stripped, punctuation removed, short
// tokens and stopwords dropped.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token kept, in runes.
const MinTokenLength = 3

// Tokenizer splits text into filtered tokens. It is safe for concurrent use.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
}

// New creates a tokenizer filtering the given stopwords. With no stopwords
// the Spanish set is used.
func New(stopwords ...string) *Tokenizer {
	if len(stopwords) == 0 {
		stopwords = spanishStopwords
	}
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[w] = struct{}{}
	}
	return &Tokenizer{stopwords: m, minLength: MinTokenLength}
}

var std = New()

// Tokenize runs the default Spanish tokenizer.
func Tokenize(text string) []string { return std.Tokenize(text) }

// Tokenize returns the tokens of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	if len(fields) == 0 {
		return nil
	}
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < t.minLength {
			continue
		}
		if _, isStop := t.stopwords[f]; isStop {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsStopword reports whether the normalized word w is filtered.
func (t *Tokenizer) IsStopword(w string) bool {
	_, ok := t.stopwords[w]
	return ok
}

// Normalize lower-cases text, decomposes it, drops combining marks and
// replaces every rune that is not a letter or digit with a space.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	// transformers keep state, so build one per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, lower)
	if err != nil {
		stripped = lower
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, stripped)
}

// Set returns the distinct tokens of tokens.
func Set(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}
