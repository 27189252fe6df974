package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/client"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/summarizer"
	"docrag/internal/worker"
)

func newService(t *testing.T) *RAGService {
	t.Helper()
	p := client.NewProvider(client.ProviderConfig{
		Worker: []worker.Option{worker.WithLogger(logging.Discard())},
		Client: []client.Option{client.WithLogger(logging.Discard())},
		Logger: logging.Discard(),
	})
	s := NewRAGService(p, nil, summarizer.NewFrequencySummarizer(nil), Options{
		SummaryMaxSentences: 1,
		Logger:              logging.Discard(),
	})
	t.Cleanup(s.Close)
	return s
}

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

var (
	cats  = strings.Repeat("El gato come pescado fresco cada mañana en la cocina. ", 3)
	birds = strings.Repeat("Los pájaros cantan en el jardín al amanecer. ", 3)
)

func TestIngestAndAskAll(t *testing.T) {
	s := newService(t)
	dir := t.TempDir()
	writeFile(t, dir, "gatos.txt", cats)
	writeFile(t, dir, "aves.md", birds)
	writeFile(t, dir, "scan.pdf", "%PDF-1.7")
	ctx := context.Background()

	docs, err := s.IngestFiles(ctx, []string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.NotEmpty(t, d.ID)
		assert.Positive(t, d.Result.Stats.TotalChunks)
		assert.NotEmpty(t, d.Result.Summary)
	}
	assert.Len(t, s.Documents(), 2)

	answers, err := s.AskAll(ctx, "qué come el gato", nil)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "gatos.txt", answers[0].Document.Name)
	assert.Contains(t, answers[0].Response.Answer, "pescado")
	assert.GreaterOrEqual(t, answers[0].Response.Confidence, answers[1].Response.Confidence)

	one, err := s.Ask(ctx, answers[0].Document.ID, "qué come el gato", nil)
	require.NoError(t, err)
	assert.True(t, one.Metadata.CacheHit)

	m, err := s.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.IndexCount)
	assert.Equal(t, 3, m.TotalQueries)
}

func TestReingestReplacesDocument(t *testing.T) {
	s := newService(t)
	path := writeFile(t, t.TempDir(), "gatos.txt", cats)
	ctx := context.Background()

	_, err := s.IngestFiles(ctx, []string{path})
	require.NoError(t, err)
	_, err = s.IngestFiles(ctx, []string{path})
	require.NoError(t, err)
	assert.Len(t, s.Documents(), 1)
}

func TestIngestErrors(t *testing.T) {
	s := newService(t)
	dir := t.TempDir()
	ctx := context.Background()

	writeFile(t, dir, "scan.pdf", "%PDF-1.7")
	_, err := s.IngestFiles(ctx, []string{filepath.Join(dir, "*.pdf")})
	assert.ErrorIs(t, err, ErrNoDocuments)

	short := writeFile(t, dir, "corto.txt", "muy corto")
	_, err = s.IngestFiles(ctx, []string{short})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.AskAll(ctx, "hola", nil)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestClearCacheForgetsDocuments(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.IngestFiles(ctx, []string{writeFile(t, t.TempDir(), "gatos.txt", cats)})
	require.NoError(t, err)

	require.NoError(t, s.ClearCache(ctx, ""))
	assert.Empty(t, s.Documents())
}

func TestMergeIsStable(t *testing.T) {
	in := []DocumentAnswer{
		{Document: Document{Name: "a"}, Response: domain.QueryResponse{Confidence: 0.2}},
		{Document: Document{Name: "b"}, Response: domain.QueryResponse{Confidence: 0.9}},
		{Document: Document{Name: "c"}, Response: domain.QueryResponse{Confidence: 0.2}},
	}
	got := Merge(in)
	names := []string{got[0].Document.Name, got[1].Document.Name, got[2].Document.Name}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, "a", in[0].Document.Name)
}
