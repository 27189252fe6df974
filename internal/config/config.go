package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docrag/internal/chunker"
	"docrag/internal/domain"
)

// WorkerConfig holds model names and the caller-side request timeout.
type WorkerConfig struct {
	EmbeddingModel  string `yaml:"embedding_model"`
	QAModel         string `yaml:"qa_model"`
	GenerationModel string `yaml:"generation_model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	QueueSize       int    `yaml:"queue_size"`
}

// Timeout returns TimeoutSecs as a duration.
func (w WorkerConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSecs) * time.Second
}

// CacheConfig configures the worker's response cache.
type CacheConfig struct {
	Enabled  *bool `yaml:"enabled"`
	MaxBytes int64 `yaml:"max_bytes"`
	TTLHours int   `yaml:"ttl_hours"`
}

// IsEnabled reports whether caching is on. Unset means on.
func (c CacheConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// TTL returns TTLHours as a duration.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// ChunkingConfig holds the default build options. An absent overlap takes
// the default; an explicit 0 disables overlap.
type ChunkingConfig struct {
	Strategy     string `yaml:"strategy"`
	Language     string `yaml:"language"`
	ChunkSize    int    `yaml:"chunk_size"`
	Overlap      *int   `yaml:"overlap"`
	MinChunkSize int    `yaml:"min_chunk_size"`
	MaxChunkSize int    `yaml:"max_chunk_size"`
}

// BuildOptions converts the section into build_index options.
func (c ChunkingConfig) BuildOptions() domain.BuildOptions {
	// the chunker reads 0 as "default" and a negative overlap as none
	overlap := 0
	if c.Overlap != nil {
		overlap = *c.Overlap
		if overlap == 0 {
			overlap = -1
		}
	}
	return domain.BuildOptions{
		ChunkOptions: domain.ChunkOptions{
			Strategy:     domain.Strategy(c.Strategy),
			ChunkSize:    c.ChunkSize,
			Overlap:      overlap,
			MinChunkSize: c.MinChunkSize,
			MaxChunkSize: c.MaxChunkSize,
		},
		Language: domain.Language(c.Language),
	}
}

// QueryConfig holds the default query options and input limits.
type QueryConfig struct {
	TopK              int `yaml:"top_k"`
	MaxLength         int `yaml:"max_length"`
	ContextWindow     int `yaml:"context_window"`
	MinTextLength     int `yaml:"min_text_length"`
	MinQuestionLength int `yaml:"min_question_length"`
}

// QueryOptions converts the section into query options.
func (q QueryConfig) QueryOptions() domain.QueryOptions {
	return domain.QueryOptions{TopK: q.TopK, MaxLength: q.MaxLength, ContextWindow: q.ContextWindow}
}

// SummarizerConfig configures the document preview.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LoggingConfig selects the log handler and level.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Worker     WorkerConfig     `yaml:"worker"`
	Cache      CacheConfig      `yaml:"cache"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Query      QueryConfig      `yaml:"query"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads a config from path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./docrag.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docrag.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Worker.TimeoutSecs == 0 {
		cfg.Worker.TimeoutSecs = 30
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = 64
	}
	if cfg.Cache.Enabled == nil {
		on := true
		cfg.Cache.Enabled = &on
	}
	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = 50 << 20
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = string(chunker.DefaultStrategy)
	}
	if cfg.Chunking.Language == "" {
		cfg.Chunking.Language = string(domain.LanguageAuto)
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		overlap := chunker.DefaultOverlap
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Chunking.MinChunkSize == 0 {
		cfg.Chunking.MinChunkSize = chunker.DefaultMinChunkSize
	}
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = chunker.DefaultMaxChunkSize
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.MinTextLength == 0 {
		cfg.Query.MinTextLength = 50
	}
	if cfg.Query.MinQuestionLength == 0 {
		cfg.Query.MinQuestionLength = 3
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate reports the first inconsistent setting.
func (c *AppConfig) Validate() error {
	if c.Worker.TimeoutSecs < 0 || c.Worker.QueueSize < 0 {
		return errors.New("worker: timeout_secs and queue_size must not be negative")
	}
	if c.Cache.MaxBytes < 0 || c.Cache.TTLHours < 0 {
		return errors.New("cache: max_bytes and ttl_hours must not be negative")
	}
	ch := c.Chunking
	if _, err := domain.ParseStrategy(ch.Strategy, chunker.DefaultStrategy); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if _, err := domain.ParseLanguage(ch.Language); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if ch.ChunkSize < 0 || ch.MinChunkSize < 0 || ch.MaxChunkSize < 0 {
		return errors.New("chunking: sizes must not be negative")
	}
	if ch.Overlap != nil && (*ch.Overlap < 0 || *ch.Overlap >= ch.ChunkSize) {
		return fmt.Errorf("chunking: overlap %d must be in [0, chunk_size %d)", *ch.Overlap, ch.ChunkSize)
	}
	if ch.MinChunkSize > ch.MaxChunkSize {
		return fmt.Errorf("chunking: min_chunk_size %d exceeds max_chunk_size %d", ch.MinChunkSize, ch.MaxChunkSize)
	}
	if c.Query.TopK < 0 || c.Query.MaxLength < 0 || c.Query.ContextWindow < 0 {
		return errors.New("query: limits must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}
