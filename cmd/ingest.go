package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/telemetry"
	"medical-rag-chatbot/services"

	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the vector index from the documents directory",
		Long: "Extracts text from every PDF (and .xlsx) file under the data directory,\n" +
			"splits it into overlapping chunks, embeds them and replaces the stored index.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cmd.OutOrStdout(), dataDir)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "", "documents directory (overrides DATA_DIR)")
	return cmd
}

func runIngest(ctx context.Context, out io.Writer, dataDir string) error {
	cfg, err := loadConfig(config.ModeIngest)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	var done cleanup
	defer done.run()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Failed to initialize metrics", "error", err)
	}

	chunker, err := services.NewFixedWindowChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(ctx, cfg, nil, &done)
	if err != nil {
		return err
	}

	writer, location, err := openWriter(cfg, &done)
	if err != nil {
		return err
	}

	log := logger.Get()
	indexer := services.NewIndexer(
		services.NewDocumentLoader(log, metrics),
		chunker,
		embedder,
		writer,
		services.IndexerOptions{
			EmbeddingModel: cfg.GoogleEmbeddingsModel,
			Dimension:      cfg.VectorDimensions,
		},
		log,
	)

	report, err := indexer.Build(ctx, cfg.DataDir)
	if err != nil {
		logger.Error("Ingestion failed", "data_dir", cfg.DataDir, "error", err)
		return err
	}

	fmt.Fprintf(out, "Indexed %d documents into %d chunks in %s\n",
		report.Documents, report.Chunks, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Index: %s (%s, %d dimensions)\n", location, report.Meta.EmbeddingModel, report.Meta.Dimension)
	if report.Unsupported > 0 {
		fmt.Fprintf(out, "Ignored %d unsupported files\n", report.Unsupported)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "Skipped %s: %s\n", s.Path, s.Reason)
	}
	return nil
}
