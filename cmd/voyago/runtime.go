package main

import (
	"fmt"
	"log/slog"

	"voyago/internal/agent"
	"voyago/internal/config"
	"voyago/internal/db"
	"voyago/internal/embedding"
	"voyago/internal/history"
	"voyago/internal/llm"
	"voyago/internal/memory"
	"voyago/internal/retriever"
	"voyago/internal/tools"
)

// runtime bundles the wired components shared by the serve and chat
// commands.
type runtime struct {
	cfg      *config.Config
	database *db.DB
	runner   agent.Runner
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	store := history.NewStore(database)

	llmCfg, ok := cfg.LLMs[cfg.DefaultLLM]
	if !ok {
		database.Close()
		return nil, fmt.Errorf("default LLM %q not found in config", cfg.DefaultLLM)
	}
	provider := llm.NewOpenAI(llmCfg.BaseURL, llmCfg.APIKey, llmCfg.Model)

	embedder, err := buildEmbedder(cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}

	index, err := retriever.OpenIndex(cfg.Retriever.IndexPath, cfg.Retriever.Collection)
	if err != nil {
		database.Close()
		return nil, err
	}

	searcher := retriever.NewHybridSearcher(database, index, embedder,
		cfg.Retriever.VectorWeight, cfg.Retriever.FTSWeight)
	docs := retriever.New(searcher, cfg.Retriever.TopK)

	registry := agent.NewRegistry()
	registry.Register(tools.NewDocSearch(docs))
	if cfg.Services.Brave.APIKey != "" {
		registry.Register(tools.NewWebSearch(cfg.Services.Brave.APIKey))
	} else {
		slog.Warn("no Brave API key configured, web search disabled")
	}

	mem := memory.NewConversationMemory(store)

	var opts []agent.ReactOption
	if cfg.Memory.Compaction.Enabled {
		compactor := memory.NewCompactor(database, provider, cfg.Memory.Compaction)
		opts = append(opts, agent.WithCompactor(compactor))
		slog.Info("compaction enabled",
			"threshold", cfg.Memory.Compaction.TurnThreshold,
			"keep_recent", cfg.Memory.Compaction.KeepRecent)
	}

	runner := agent.NewReactRunner(provider, store, mem, registry, opts...)

	return &runtime{
		cfg:      cfg,
		database: database,
		runner:   runner,
	}, nil
}

func (rt *runtime) Close() {
	rt.database.Close()
}

func buildEmbedder(cfg *config.Config, database *db.DB) (embedding.Provider, error) {
	embCfg := cfg.Retriever.Embedding
	embLLM, ok := cfg.LLMs[embCfg.LLM]
	if !ok {
		return nil, fmt.Errorf("embedding LLM %q not found in config", embCfg.LLM)
	}
	raw := embedding.NewOpenAI(embLLM.BaseURL, embLLM.APIKey, embCfg.Model, embCfg.Dimensions)
	return embedding.NewCachedProvider(raw, database, embCfg.CacheSize), nil
}
