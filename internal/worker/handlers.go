package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docrag/internal/answer"
	"docrag/internal/cache"
	"docrag/internal/domain"
	"docrag/internal/protocol"
)

// cacheThreshold is the confidence above which query responses are cached.
const cacheThreshold = 0.4

var capabilities = []string{
	"build_index",
	"query",
	"get_metrics",
	"clear_cache",
	"chunking:" + string(domain.StrategyFixed),
	"chunking:" + string(domain.StrategySemantic),
	"chunking:" + string(domain.StrategyParagraph),
	"chunking:" + string(domain.StrategySentence),
	"scoring:lexical",
}

// indexScope is the fragment every cached query key for id contains, and
// no key for another id or question does. Query keys encode
// QueryPayload, whose indexId is followed by the question field.
func indexScope(id string) string {
	quoted, _ := json.Marshal(id)
	return `"indexId":` + string(quoted) + ","
}

func decode[T any](req protocol.Request) (T, error) {
	var v T
	if err := protocol.Decode(req.Payload, &v); err != nil {
		return v, domain.NewValidationError(fmt.Sprintf("malformed %s payload: %v", req.Type, err))
	}
	return v, nil
}

func (w *Worker) handleInit(_ context.Context, req protocol.Request) (protocol.Response, error) {
	p, err := decode[protocol.InitPayload](req)
	if err != nil {
		return protocol.Response{}, err
	}
	if c := p.Config; c != nil {
		if c.EmbeddingModel != "" {
			w.cfg.EmbeddingModel = c.EmbeddingModel
		}
		if c.QAModel != "" {
			w.cfg.QAModel = c.QAModel
		}
		if c.GenerationModel != "" {
			w.cfg.GenerationModel = c.GenerationModel
		}
		if c.EnableCache != nil {
			w.cfg.EnableCache = *c.EnableCache
		}
		if c.MaxCacheSize > 0 {
			w.cfg.MaxCacheSize = c.MaxCacheSize
		}
		w.cache = w.newCache()
	}
	w.setState(StateReady)
	w.logger.Info("worker ready", "cache", w.cfg.EnableCache, "maxCacheSize", w.cfg.MaxCacheSize)
	return protocol.NewResponse(req.ID, protocol.TypeWorkerReady, protocol.WorkerReady{
		Models:       w.models(),
		Capabilities: capabilities,
	})
}

func (w *Worker) models() protocol.Models {
	return protocol.Models{
		Embedding:  w.cfg.EmbeddingModel,
		QA:         w.cfg.QAModel,
		Generation: w.cfg.GenerationModel,
	}
}

func (w *Worker) handleBuildIndex(_ context.Context, req protocol.Request) (protocol.Response, error) {
	w.setState(StateBusyIndexing)
	p, err := decode[protocol.BuildIndexPayload](req)
	if err != nil {
		return protocol.Response{}, err
	}
	var opts domain.BuildOptions
	if p.Options != nil {
		opts = *p.Options
	}
	res, err := w.builder.Build(p.ID, p.Text, opts)
	if err != nil {
		return protocol.Response{}, err
	}
	// answers cached for a previous build of this id are stale
	w.cache.Clear(indexScope(res.Index.ID))

	w.logger.Info("index built",
		"id", res.Index.ID,
		"chunks", res.Stats.TotalChunks,
		"tokens", res.Stats.TotalTokens,
		"strategy", res.Index.Strategy,
		"language", res.Index.Language,
		"duration", res.ProcessingTime)
	return protocol.NewResponse(req.ID, protocol.TypeIndexReady, protocol.IndexReady{
		ID: res.Index.ID,
		Stats: protocol.IndexReadyStats{
			Chunks:           res.Stats.TotalChunks,
			TotalTokens:      res.Stats.TotalTokens,
			AvgChunkSize:     res.Stats.AvgChunkSize,
			ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
			Strategy:         res.Index.Strategy,
			Language:         res.Index.Language,
		},
	})
}

func (w *Worker) handleQuery(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	w.setState(StateBusyQuerying)
	start := w.now()
	p, err := decode[protocol.QueryPayload](req)
	if err != nil {
		return protocol.Response{}, err
	}
	idx, ok := w.store.Get(p.IndexID)
	if !ok {
		return protocol.Response{}, domain.NewNotFoundError(fmt.Sprintf("index %q not found", p.IndexID))
	}

	key, err := cache.Key(string(protocol.TypeQuery), p)
	if err != nil {
		return protocol.Response{}, err
	}
	var out domain.QueryResponse
	hit, err := w.cache.GetJSON(key, &out)
	if err != nil {
		w.logger.Warn("dropping unreadable cache entry", "error", err)
		hit = false
	}
	if hit {
		out.Metadata.CacheHit = true
		out.Metadata.ProcessingTimeMs = w.now().Sub(start).Milliseconds()
		w.stats.recordQuery(w.now().Sub(start), true)
		return protocol.NewResponse(req.ID, protocol.TypeQueryResponse, out)
	}

	var opts domain.QueryOptions
	if p.Options != nil {
		opts = *p.Options
	}
	ans := w.assembler.Answer(ctx, idx, p.Question, opts)
	elapsed := w.now().Sub(start)
	out = domain.QueryResponse{
		Answer:     ans.Answer,
		Confidence: ans.Confidence,
		Context:    ans.Context,
		Metadata: domain.ResponseMetadata{
			IndexID:          idx.ID,
			Method:           ans.Method,
			ModelUsed:        ans.ModelUsed,
			ProcessingTimeMs: elapsed.Milliseconds(),
			ChunksSearched:   len(idx.Chunks),
		},
	}
	if out.Confidence > cacheThreshold {
		if err := w.cache.Set(key, out); err != nil {
			w.logger.Warn("response not cached", "id", idx.ID, "error", err)
		}
	}
	w.stats.recordQuery(elapsed, false)
	return protocol.NewResponse(req.ID, protocol.TypeQueryResponse, out)
}

func (w *Worker) handleGetMetrics(_ context.Context, req protocol.Request) (protocol.Response, error) {
	return protocol.NewResponse(req.ID, protocol.TypeMetrics, w.metrics())
}

func (w *Worker) metrics() domain.Metrics {
	loaded := []string{answer.KeywordModel}
	for _, m := range []string{w.cfg.EmbeddingModel, w.cfg.QAModel, w.cfg.GenerationModel} {
		if m != "" {
			loaded = append(loaded, m)
		}
	}
	return domain.Metrics{
		TotalQueries:    w.stats.totalQueries,
		AvgResponseTime: w.stats.avgResponseMs(),
		CacheHitRate:    w.stats.cacheHitRate(),
		MemoryUsage:     w.cache.Size() + w.store.TextBytes(),
		ModelsLoaded:    loaded,
		IndexCount:      w.store.Len(),
	}
}

func (w *Worker) handleClearCache(_ context.Context, req protocol.Request) (protocol.Response, error) {
	p, err := decode[protocol.ClearCachePayload](req)
	if err != nil {
		return protocol.Response{}, err
	}
	scope := ""
	if p.IndexID != "" {
		scope = indexScope(p.IndexID)
	}
	removed := w.cache.Clear(scope)
	if p.IndexID == "" {
		w.store.Clear()
	}
	w.logger.Info("cache cleared", "indexId", p.IndexID, "entries", removed)
	return protocol.NewResponse(req.ID, protocol.TypeCacheCleared, protocol.ClearCachePayload{IndexID: p.IndexID})
}

// metrics accumulates query timings. Only the worker loop touches it.
type metrics struct {
	totalQueries int
	cacheHits    int
	totalTime    time.Duration
}

func (m *metrics) recordQuery(d time.Duration, cacheHit bool) {
	m.totalQueries++
	m.totalTime += d
	if cacheHit {
		m.cacheHits++
	}
}

func (m *metrics) avgResponseMs() float64 {
	if m.totalQueries == 0 {
		return 0
	}
	return float64(m.totalTime.Microseconds()) / 1000 / float64(m.totalQueries)
}

func (m *metrics) cacheHitRate() float64 {
	if m.totalQueries == 0 {
		return 0
	}
	return float64(m.cacheHits) / float64(m.totalQueries)
}
