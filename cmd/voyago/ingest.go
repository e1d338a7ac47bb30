package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"voyago/internal/config"
	"voyago/internal/db"
	"voyago/internal/retriever"

	"github.com/spf13/cobra"
)

var ingestDocsPath string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index PDF travel documents for retrieval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if ingestDocsPath != "" {
			cfg.Retriever.DocsPath = ingestDocsPath
		}

		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		embedder, err := buildEmbedder(cfg, database)
		if err != nil {
			return err
		}

		index, err := retriever.OpenIndex(cfg.Retriever.IndexPath, cfg.Retriever.Collection)
		if err != nil {
			return err
		}

		chunker, err := retriever.NewChunker(cfg.Retriever.ChunkSize, cfg.Retriever.ChunkOverlap)
		if err != nil {
			return err
		}

		ingestor := retriever.NewIngestor(database, index, embedder, chunker, cfg.Retriever.DocsPath)
		slog.Info("starting ingestion", "docs_path", cfg.Retriever.DocsPath)

		stats, err := ingestor.Run(ctx)
		if err != nil {
			return fmt.Errorf("ingesting documents: %w", err)
		}

		slog.Info("ingestion complete",
			"documents", stats.Documents,
			"skipped", stats.Skipped,
			"chunks", stats.Chunks,
			"indexed_total", index.Count(),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDocsPath, "docs", "d", "", "override documents directory")
}
