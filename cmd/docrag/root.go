package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"docrag/internal/client"
	"docrag/internal/config"
	"docrag/internal/logging"
	"docrag/internal/protocol"
	"docrag/internal/service"
	"docrag/internal/summarizer"
	"docrag/internal/worker"
)

type globalFlags struct {
	configPath string
	logLevel   string
	noCache    bool
	topK       int
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "docrag",
		Short:         "Index text documents and answer questions from them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config (default ./docrag.yaml or ~/.config/docrag/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVar(&flags.noCache, "no-cache", false, "disable the answer cache")
	root.PersistentFlags().IntVarP(&flags.topK, "top-k", "k", 0, "override query.top_k")

	root.AddCommand(newIndexCmd(&flags), newAskCmd(&flags), newTUICmd(&flags))
	return root
}

type app struct {
	cfg    *config.AppConfig
	logger *slog.Logger
	svc    *service.RAGService
}

func (a *app) Close() { a.svc.Close() }

func setup(flags *globalFlags) (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if flags.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(flags.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.noCache {
		off := false
		cfg.Cache.Enabled = &off
	}
	if flags.topK > 0 {
		cfg.Query.TopK = flags.topK
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	enabled := cfg.Cache.IsEnabled()
	provider := client.NewProvider(client.ProviderConfig{
		Init: &protocol.InitConfig{
			EmbeddingModel:  cfg.Worker.EmbeddingModel,
			QAModel:         cfg.Worker.QAModel,
			GenerationModel: cfg.Worker.GenerationModel,
			EnableCache:     &enabled,
			MaxCacheSize:    cfg.Cache.MaxBytes,
		},
		Worker: []worker.Option{
			worker.WithLogger(logger),
			worker.WithConfig(worker.Config{
				EmbeddingModel:  cfg.Worker.EmbeddingModel,
				QAModel:         cfg.Worker.QAModel,
				GenerationModel: cfg.Worker.GenerationModel,
				EnableCache:     enabled,
				MaxCacheSize:    cfg.Cache.MaxBytes,
				CacheTTL:        cfg.Cache.TTL(),
				QueueSize:       cfg.Worker.QueueSize,
			}),
		},
		Client: []client.Option{
			client.WithLogger(logger),
			client.WithTimeout(cfg.Worker.Timeout()),
			client.WithMinLengths(cfg.Query.MinTextLength, cfg.Query.MinQuestionLength),
		},
		Logger: logger,
	})
	svc := service.NewRAGService(provider, nil, summarizer.NewFrequencySummarizer(nil), service.Options{
		Build:               cfg.Chunking.BuildOptions(),
		Query:               cfg.Query.QueryOptions(),
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		Logger:              logger,
	})
	logger.Debug("configured", "cacheEnabled", enabled, "cacheBytes", cfg.Cache.MaxBytes, "strategy", cfg.Chunking.Strategy)
	return &app{cfg: cfg, logger: logger, svc: svc}, nil
}
