package answer

import "context"

// Candidate is an answer proposed by an extension stage. An empty Text
// means the stage had nothing to offer.
type Candidate struct {
	Text       string
	Confidence float64
}

// Extractor derives a direct answer span from retrieved context.
type Extractor interface {
	Extract(ctx context.Context, question, contextText string) (Candidate, error)
}

// GenerateOptions tunes free-form generation.
type GenerateOptions struct {
	Temperature float64
	MaxLength   int
}

// Generator writes an answer from retrieved context.
type Generator interface {
	Generate(ctx context.Context, question, contextText string, opts GenerateOptions) (Candidate, error)
}

// NoopExtractor never proposes an answer. It stands in until a model-backed
// extractor is configured.
type NoopExtractor struct{}

func (NoopExtractor) Extract(context.Context, string, string) (Candidate, error) {
	return Candidate{}, nil
}

// NoopGenerator never proposes an answer.
type NoopGenerator struct{}

func (NoopGenerator) Generate(context.Context, string, string, GenerateOptions) (Candidate, error) {
	return Candidate{}, nil
}
