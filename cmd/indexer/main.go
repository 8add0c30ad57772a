package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/junozone1110/faqbot-1/internal/bootstrap"
	"github.com/junozone1110/faqbot-1/internal/config"
	"github.com/junozone1110/faqbot-1/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer, err := bootstrap.NewIndexer(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer indexer.Close()

	report, err := indexer.UseCase.IndexAll(ctx)
	if err != nil {
		logger.Error("index_failed", "error", err, "documents", report.Documents)
		os.Exit(1)
	}
	if err := indexer.Finish(); err != nil {
		logger.Error("index_flush_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("index_done",
		"source_dir", cfg.IndexSourceDir,
		"chunk_store", cfg.ChunkStore,
		"documents", report.Documents,
		"chunks", report.Chunks,
		"skipped", report.Skipped,
		"untagged", report.Untagged,
	)
}
