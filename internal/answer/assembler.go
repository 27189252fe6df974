// Package answer turns retrieved chunks into a final answer through a chain
// of stages: extractive QA, generation, then the best lexical match.
package answer

import (
	"context"
	"log/slog"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/retrieval"
)

const (
	// NoAnswer is returned when nothing in the index matches.
	NoAnswer = "No relevant answer found."
	// KeywordModel names the lexical scorer in ModelUsed.
	KeywordModel = "keyword-matching"
	// DefaultContextWindow bounds the context handed to extension stages,
	// in characters.
	DefaultContextWindow = 2000

	generationThreshold = 0.5
)

// Assembler runs the answer chain for one question against one index.
type Assembler struct {
	searcher  *retrieval.Searcher
	extractor Extractor
	generator Generator
	qaModel   string
	genModel  string
	logger    *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithExtractor plugs an extractive QA stage reported as model.
func WithExtractor(e Extractor, model string) Option {
	return func(a *Assembler) {
		if e != nil {
			a.extractor = e
			a.qaModel = model
		}
	}
}

// WithGenerator plugs a generation stage reported as model.
func WithGenerator(g Generator, model string) Option {
	return func(a *Assembler) {
		if g != nil {
			a.generator = g
			a.genModel = model
		}
	}
}

// WithSearcher replaces the lexical searcher.
func WithSearcher(s *retrieval.Searcher) Option {
	return func(a *Assembler) {
		if s != nil {
			a.searcher = s
		}
	}
}

// WithLogger sets the logger used for stage failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an assembler whose extension stages are no-ops.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		searcher:  retrieval.New(nil),
		extractor: NoopExtractor{},
		generator: NoopGenerator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func enabled(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Answer always returns a non-empty answer. Stage failures are logged and
// the chain moves on.
func (a *Assembler) Answer(ctx context.Context, index *domain.Index, question string, opts domain.QueryOptions) domain.Answer {
	items := a.searcher.Search(index, question, opts.TopK)
	out := domain.Answer{Context: items, Method: domain.MethodSemantic, ModelUsed: KeywordModel}

	if len(items) > 0 {
		window := contextText(items, opts.ContextWindow)
		qaAnswered := false
		if enabled(opts.UseQA, true) {
			c, err := a.extractor.Extract(ctx, question, window)
			if err != nil {
				a.logger.Warn("extractive stage failed", "error", err)
			} else if c.Text != "" {
				out.Answer, out.Confidence = c.Text, c.Confidence
				out.Method, out.ModelUsed = domain.MethodQA, a.qaModel
				qaAnswered = true
			}
		}
		if enabled(opts.UseGeneration, true) && out.Confidence < generationThreshold {
			c, err := a.generator.Generate(ctx, question, window, GenerateOptions{Temperature: opts.Temperature, MaxLength: opts.MaxLength})
			if err != nil {
				a.logger.Warn("generation stage failed", "error", err)
			} else if c.Text != "" {
				out.Answer = c.Text
				out.Method, out.ModelUsed = domain.MethodGeneration, a.genModel
				if qaAnswered {
					out.Method = domain.MethodHybrid
					out.ModelUsed = a.qaModel + "+" + a.genModel
				}
				if c.Confidence > out.Confidence || !qaAnswered {
					out.Confidence = c.Confidence
				}
			}
		}
		if out.Answer == "" {
			out.Answer = items[0].Text
			out.Confidence = items[0].Score
			out.Method, out.ModelUsed = domain.MethodSemantic, KeywordModel
		}
	}

	if out.Answer == "" {
		out.Answer = NoAnswer
		out.Confidence = 0
	}
	out.Confidence = clamp(out.Confidence)
	if opts.MaxLength > 0 {
		out.Answer = truncate(out.Answer, opts.MaxLength)
	}
	if !enabled(opts.IncludeContext, true) {
		out.Context = nil
	}
	return out
}

// contextText joins ranked items, best first, up to window characters.
func contextText(items []domain.ResultItem, window int) string {
	if window <= 0 {
		window = DefaultContextWindow
	}
	var b strings.Builder
	remaining := window
	for _, it := range items {
		if remaining <= 0 {
			break
		}
		text := truncate(it.Text, remaining)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
		remaining -= len([]rune(text))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
