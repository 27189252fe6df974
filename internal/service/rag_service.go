// Package service is the caller-facing glue: it ingests files into the
// worker, asks questions against one or many indices and merges the
// answers.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"docrag/internal/client"
	"docrag/internal/domain"
	"docrag/internal/extract"
)

// ErrNoDocuments is returned when ingestion finds nothing readable.
var ErrNoDocuments = errors.New("no supported documents found")

// Document is an ingested file.
type Document struct {
	ID     string
	Name   string
	Result domain.IngestResult
}

// DocumentAnswer is one index's answer to a question.
type DocumentAnswer struct {
	Document Document
	Response domain.QueryResponse
}

// Options configures a RAGService.
type Options struct {
	Build               domain.BuildOptions
	Query               domain.QueryOptions
	SummaryMaxSentences int
	Logger              *slog.Logger
}

// RAGService implements domain.RAGService on top of a worker provider.
type RAGService struct {
	provider   *client.Provider
	extractor  domain.Extractor
	summarizer domain.Summarizer
	opts       Options
	logger     *slog.Logger

	mu   sync.Mutex
	docs []Document
}

var _ domain.RAGService = (*RAGService)(nil)

// NewRAGService wires the service. A nil summarizer disables previews.
func NewRAGService(provider *client.Provider, extractor domain.Extractor, summarizer domain.Summarizer, opts Options) *RAGService {
	if extractor == nil {
		extractor = extract.NewPlainText()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{provider: provider, extractor: extractor, summarizer: summarizer, opts: opts, logger: logger}
}

// IngestText indexes text under id. An empty id lets the worker pick one.
// opts overrides the configured build options when non-nil.
func (s *RAGService) IngestText(ctx context.Context, id, text string, opts *domain.BuildOptions) (domain.IngestResult, error) {
	c, err := s.provider.Client(ctx)
	if err != nil {
		return domain.IngestResult{}, err
	}
	build := s.opts.Build
	if opts != nil {
		build = *opts
	}
	ready, err := c.BuildIndex(ctx, id, text, &build)
	if err != nil {
		return domain.IngestResult{}, err
	}
	res := domain.IngestResult{
		ID: ready.ID,
		Stats: domain.IndexStats{
			TotalChunks:  ready.Stats.Chunks,
			TotalTokens:  ready.Stats.TotalTokens,
			AvgChunkSize: ready.Stats.AvgChunkSize,
		},
		Strategy:         ready.Stats.Strategy,
		Language:         ready.Stats.Language,
		ProcessingTimeMs: ready.Stats.ProcessingTimeMs,
	}
	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(text, s.opts.SummaryMaxSentences)
		if err != nil {
			s.logger.Warn("summary failed", "id", res.ID, "error", err)
		}
		res.Summary = summary
	}
	return res, nil
}

// IngestFiles extracts and indexes every supported file matched by paths,
// which may be globs. Each file is indexed under a hash of its path, so
// re-ingesting a file replaces its index.
func (s *RAGService) IngestFiles(ctx context.Context, paths []string) ([]Document, error) {
	var files []string
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		files = append(files, matches...)
	}

	var out []Document
	for _, f := range files {
		ext, err := extract.File(ctx, s.extractor, f)
		if errors.Is(err, domain.ErrUnsupported) {
			s.logger.Info("skipping unsupported file", "path", f)
			continue
		}
		if err != nil {
			return out, err
		}
		res, err := s.IngestText(ctx, hashString(f), ext.Text, nil)
		if err != nil {
			return out, fmt.Errorf("index %s: %w", f, err)
		}
		res.Name = filepath.Base(f)
		doc := Document{ID: res.ID, Name: res.Name, Result: res}
		s.remember(doc)
		out = append(out, doc)
		s.logger.Info("document indexed",
			"path", f,
			"id", res.ID,
			"pages", ext.PageCount,
			"chars", ext.CharCount,
			"chunks", res.Stats.TotalChunks)
	}
	if len(out) == 0 {
		return nil, ErrNoDocuments
	}
	return out, nil
}

func (s *RAGService) remember(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == doc.ID {
			s.docs[i] = doc
			return
		}
	}
	s.docs = append(s.docs, doc)
}

// Documents lists ingested files in ingestion order.
func (s *RAGService) Documents() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Document(nil), s.docs...)
}

func (s *RAGService) queryOptions(opts *domain.QueryOptions) *domain.QueryOptions {
	if opts != nil {
		return opts
	}
	q := s.opts.Query
	return &q
}

// Ask queries a single index.
func (s *RAGService) Ask(ctx context.Context, indexID, question string, opts *domain.QueryOptions) (domain.QueryResponse, error) {
	c, err := s.provider.Client(ctx)
	if err != nil {
		return domain.QueryResponse{}, err
	}
	return c.Query(ctx, indexID, question, s.queryOptions(opts))
}

// AskAll queries every ingested document and returns the answers ordered by
// confidence, highest first.
func (s *RAGService) AskAll(ctx context.Context, question string, opts *domain.QueryOptions) ([]DocumentAnswer, error) {
	docs := s.Documents()
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	c, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	qopts := s.queryOptions(opts)

	answers := make([]DocumentAnswer, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			resp, err := c.Query(gctx, doc.ID, question, qopts)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
			answers[i] = DocumentAnswer{Document: doc, Response: resp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(answers), nil
}

// Merge orders answers by confidence, keeping input order among ties.
func Merge(answers []DocumentAnswer) []DocumentAnswer {
	out := append([]DocumentAnswer(nil), answers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Response.Confidence > out[j].Response.Confidence
	})
	return out
}

// Metrics returns the worker's activity snapshot.
func (s *RAGService) Metrics(ctx context.Context) (domain.Metrics, error) {
	c, err := s.provider.Client(ctx)
	if err != nil {
		return domain.Metrics{}, err
	}
	return c.Metrics(ctx)
}

// ClearCache drops cached answers for indexID. With an empty id it also
// forgets every ingested document.
func (s *RAGService) ClearCache(ctx context.Context, indexID string) error {
	c, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}
	if err := c.ClearCache(ctx, indexID); err != nil {
		return err
	}
	if indexID == "" {
		s.mu.Lock()
		s.docs = nil
		s.mu.Unlock()
	}
	return nil
}

// Close terminates the worker.
func (s *RAGService) Close() {
	s.provider.Close()
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
