package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/chunker"
	"docrag/internal/domain"
	"docrag/internal/indexer"
	"docrag/internal/indexstore/memory"
)

type stubExtractor struct {
	candidate Candidate
	err       error
	gotCtx    string
}

func (s *stubExtractor) Extract(_ context.Context, _ string, contextText string) (Candidate, error) {
	s.gotCtx = contextText
	return s.candidate, s.err
}

type stubGenerator struct {
	candidate Candidate
	calls     int
	gotOpts   GenerateOptions
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string, opts GenerateOptions) (Candidate, error) {
	s.calls++
	s.gotOpts = opts
	return s.candidate, nil
}

func buildIndex(t *testing.T, text string) *domain.Index {
	t.Helper()
	res, err := indexer.New(chunker.New(nil), memory.NewStorage()).Build("doc1", text, domain.BuildOptions{
		ChunkOptions: domain.ChunkOptions{Strategy: domain.StrategySentence, MaxChunkSize: 25, MinChunkSize: 5},
	})
	require.NoError(t, err)
	return res.Index
}

const pets = "El gato come pescado. El perro come carne."

func TestAnswerFallsBackToBestMatch(t *testing.T) {
	idx := buildIndex(t, pets)
	ans := New().Answer(context.Background(), idx, "qué come el gato", domain.QueryOptions{})

	assert.Equal(t, "El gato come pescado.", ans.Answer)
	assert.Equal(t, domain.MethodSemantic, ans.Method)
	assert.Equal(t, KeywordModel, ans.ModelUsed)
	require.NotEmpty(t, ans.Context)
	assert.Equal(t, ans.Context[0].Score, ans.Confidence)
	assert.Greater(t, ans.Confidence, 0.0)
}

func TestAnswerEmptyIndex(t *testing.T) {
	ans := New().Answer(context.Background(), &domain.Index{ID: "empty"}, "qué come el gato", domain.QueryOptions{})
	assert.Equal(t, NoAnswer, ans.Answer)
	assert.Zero(t, ans.Confidence)
	assert.Equal(t, domain.MethodSemantic, ans.Method)
	assert.Empty(t, ans.Context)
}

func TestAnswerExtractiveStage(t *testing.T) {
	idx := buildIndex(t, pets)
	qa := &stubExtractor{candidate: Candidate{Text: "pescado", Confidence: 0.9}}
	gen := &stubGenerator{candidate: Candidate{Text: "generado", Confidence: 0.7}}
	ans := New(WithExtractor(qa, "qa-model"), WithGenerator(gen, "gen-model")).
		Answer(context.Background(), idx, "qué come el gato", domain.QueryOptions{ContextWindow: 10})

	assert.Equal(t, "pescado", ans.Answer)
	assert.Equal(t, domain.MethodQA, ans.Method)
	assert.Equal(t, "qa-model", ans.ModelUsed)
	assert.Equal(t, 0.9, ans.Confidence)
	assert.Equal(t, 0, gen.calls, "generation runs only below the confidence threshold")
	assert.Equal(t, "El gato co", qa.gotCtx)
}

func TestAnswerHybrid(t *testing.T) {
	idx := buildIndex(t, pets)
	qa := &stubExtractor{candidate: Candidate{Text: "pescado", Confidence: 0.3}}
	gen := &stubGenerator{candidate: Candidate{Text: "El gato come pescado.", Confidence: 0.6}}
	ans := New(WithExtractor(qa, "qa"), WithGenerator(gen, "gen")).
		Answer(context.Background(), idx, "qué come el gato", domain.QueryOptions{Temperature: 0.2, MaxLength: 200})

	assert.Equal(t, domain.MethodHybrid, ans.Method)
	assert.Equal(t, "qa+gen", ans.ModelUsed)
	assert.Equal(t, 0.6, ans.Confidence)
	assert.Equal(t, GenerateOptions{Temperature: 0.2, MaxLength: 200}, gen.gotOpts)
}

func TestAnswerGenerationOnly(t *testing.T) {
	idx := buildIndex(t, pets)
	gen := &stubGenerator{candidate: Candidate{Text: "Come pescado.", Confidence: 0.45}}
	ans := New(WithGenerator(gen, "gen")).
		Answer(context.Background(), idx, "qué come el gato", domain.QueryOptions{UseQA: domain.Bool(false)})

	assert.Equal(t, domain.MethodGeneration, ans.Method)
	assert.Equal(t, "Come pescado.", ans.Answer)
	assert.Equal(t, 0.45, ans.Confidence)
}

func TestAnswerStageErrorFallsThrough(t *testing.T) {
	idx := buildIndex(t, pets)
	qa := &stubExtractor{err: errors.New("model unavailable")}
	ans := New(WithExtractor(qa, "qa")).Answer(context.Background(), idx, "qué come el gato", domain.QueryOptions{})
	assert.Equal(t, domain.MethodSemantic, ans.Method)
	assert.Equal(t, "El gato come pescado.", ans.Answer)
}

func TestAnswerDisabledStagesAreSkipped(t *testing.T) {
	idx := buildIndex(t, pets)
	qa := &stubExtractor{candidate: Candidate{Text: "pescado", Confidence: 0.9}}
	gen := &stubGenerator{candidate: Candidate{Text: "x", Confidence: 0.9}}
	ans := New(WithExtractor(qa, "qa"), WithGenerator(gen, "gen")).Answer(context.Background(), idx, "gato", domain.QueryOptions{
		UseQA: domain.Bool(false), UseGeneration: domain.Bool(false),
	})
	assert.Equal(t, domain.MethodSemantic, ans.Method)
	assert.Equal(t, 0, gen.calls)
}

func TestAnswerOptions(t *testing.T) {
	idx := buildIndex(t, pets)
	ans := New().Answer(context.Background(), idx, "gato", domain.QueryOptions{MaxLength: 7, IncludeContext: domain.Bool(false)})
	assert.Equal(t, "El gato", ans.Answer)
	assert.Nil(t, ans.Context)
}

func TestConfidenceIsClamped(t *testing.T) {
	assert.Equal(t, 1.0, clamp(1.3))
	assert.Equal(t, 0.0, clamp(-0.1))
	assert.Equal(t, 0.5, clamp(0.5))
}
