package domain

import (
	"fmt"
	"time"
)

// Strategy selects how a document is split into chunks.
type Strategy string

const (
	StrategyFixed     Strategy = "fixed"
	StrategySemantic  Strategy = "semantic"
	StrategyParagraph Strategy = "paragraph"
	StrategySentence  Strategy = "sentence"
)

// ParseStrategy validates s. The empty string maps to def.
func ParseStrategy(s string, def Strategy) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return def, nil
	case StrategyFixed, StrategySemantic, StrategyParagraph, StrategySentence:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown chunking strategy %q", s)
}

// Language is the detected or requested language of a document.
type Language string

const (
	LanguageAuto    Language = "auto"
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)

// ParseLanguage validates s. The empty string maps to auto.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case "":
		return LanguageAuto, nil
	case LanguageAuto, LanguageSpanish, LanguageEnglish:
		return Language(s), nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// ChunkMetadata carries positional and coarse structural data for a chunk.
// Positions are rune offsets into the original text, end exclusive.
type ChunkMetadata struct {
	Index          int `json:"index"`
	StartPos       int `json:"startPos"`
	EndPos         int `json:"endPos"`
	SentenceCount  int `json:"sentenceCount"`
	ParagraphCount int `json:"paragraphCount"`
}

// Chunk is a contiguous span of a document used as the unit of retrieval.
type Chunk struct {
	Text     string        `json:"text"`
	Tokens   []string      `json:"tokens"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexStats aggregates token statistics for an Index.
type IndexStats struct {
	TotalChunks  int     `json:"totalChunks"`
	TotalTokens  int     `json:"totalTokens"`
	AvgChunkSize float64 `json:"avgChunkSize"`
}

// Index is the set of chunks derived from one document.
type Index struct {
	ID           string     `json:"id"`
	Chunks       []Chunk    `json:"chunks"`
	OriginalText string     `json:"originalText"`
	CreatedAt    time.Time  `json:"createdAt"`
	Strategy     Strategy   `json:"strategy"`
	Language     Language   `json:"language"`
	Stats        IndexStats `json:"stats"`
}

// ChunkOptions bounds chunk sizes, in characters.
type ChunkOptions struct {
	Strategy     Strategy `json:"chunkingStrategy,omitempty"`
	ChunkSize    int      `json:"chunkSize,omitempty"`
	Overlap      int      `json:"overlap,omitempty"`
	MinChunkSize int      `json:"minChunkSize,omitempty"`
	MaxChunkSize int      `json:"maxChunkSize,omitempty"`
}

// BuildOptions configures a build_index request. Zero fields take defaults.
type BuildOptions struct {
	ChunkOptions
	Language Language `json:"language,omitempty"`
}

// QueryOptions configures a query request. Nil booleans take defaults.
type QueryOptions struct {
	TopK           int     `json:"topK,omitempty"`
	UseQA          *bool   `json:"useQA,omitempty"`
	UseGeneration  *bool   `json:"useGeneration,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	MaxLength      int     `json:"maxLength,omitempty"`
	IncludeContext *bool   `json:"includeContext,omitempty"`
	ContextWindow  int     `json:"contextWindow,omitempty"`
}

// Bool returns a pointer to v, for optional fields in QueryOptions.
func Bool(v bool) *bool { return &v }

// ResultItem is a ranked chunk returned by a query.
type ResultItem struct {
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	TokenCount int     `json:"tokenCount"`
}

// Method records which stage of the answer chain produced the answer.
type Method string

const (
	MethodSemantic   Method = "semantic"
	MethodQA         Method = "qa"
	MethodGeneration Method = "generation"
	MethodHybrid     Method = "hybrid"
)

// Answer is the output of the response assembler.
type Answer struct {
	Answer     string       `json:"answer"`
	Confidence float64      `json:"confidence"`
	Context    []ResultItem `json:"context"`
	Method     Method       `json:"method"`
	ModelUsed  string       `json:"modelUsed"`
}

// ResponseMetadata accompanies every query response.
type ResponseMetadata struct {
	IndexID          string `json:"indexId"`
	Method           Method `json:"method"`
	ModelUsed        string `json:"modelUsed"`
	ProcessingTimeMs int64  `json:"processingTime"`
	ChunksSearched   int    `json:"chunksSearched"`
	CacheHit         bool   `json:"cacheHit"`
}

// QueryResponse is the payload answered for a query.
type QueryResponse struct {
	Answer     string           `json:"answer"`
	Confidence float64          `json:"confidence"`
	Context    []ResultItem     `json:"context"`
	Metadata   ResponseMetadata `json:"metadata"`
}

// Extraction is the output of a text-extraction pipeline.
type Extraction struct {
	Text      string        `json:"text"`
	PageCount int           `json:"pageCount"`
	CharCount int           `json:"charCount"`
	Elapsed   time.Duration `json:"elapsedMs"`
}

// IngestResult reports a completed index build.
type IngestResult struct {
	ID               string     `json:"id"`
	Name             string     `json:"name,omitempty"`
	Stats            IndexStats `json:"stats"`
	Strategy         Strategy   `json:"strategy"`
	Language         Language   `json:"language"`
	ProcessingTimeMs int64      `json:"processingTime"`
	Summary          string     `json:"summary,omitempty"`
}

// Metrics is a snapshot of worker activity.
type Metrics struct {
	TotalQueries    int      `json:"totalQueries"`
	AvgResponseTime float64  `json:"avgResponseTime"`
	CacheHitRate    float64  `json:"cacheHitRate"`
	MemoryUsage     int64    `json:"memoryUsage"`
	ModelsLoaded    []string `json:"modelsLoaded"`
	IndexCount      int      `json:"indexCount"`
}
