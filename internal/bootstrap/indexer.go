package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/junozone1110/faqbot-1/internal/config"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
	"github.com/junozone1110/faqbot-1/internal/core/usecase"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/chunking"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/extractor"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/extractor/pdf"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/extractor/plaintext"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/llm/ollama"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/repository/postgres"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/resilience"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/storage/localfs"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/store/memory"
)

type Indexer struct {
	UseCase *usecase.IndexCorpusUseCase

	finish func() error
	close  func()
}

// NewIndexer wires the corpus indexer. Chunks go to Postgres when
// CHUNK_STORE=postgres, otherwise to the JSON snapshot.
func NewIndexer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := config.LoadCatalog(cfg.DomainCatalogPath)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.IndexSourceDir)
	if err != nil {
		return nil, fmt.Errorf("init source storage: %w", err)
	}
	router := extractor.NewRouter().
		Register(pdf.NewExtractor(storage), "pdf").
		Register(plaintext.NewExtractor(storage), "txt", "md")

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder, err := NewEmbedder(cfg, ollamaClient, executor)
	if err != nil {
		return nil, err
	}

	res := &resources{cfg: cfg}
	var writer ports.ChunkWriter
	finish := func() error { return nil }
	if cfg.ChunkStore == config.StorePostgres {
		db, err := res.postgres(ctx)
		if err != nil {
			return nil, err
		}
		writer = postgres.NewChunkRepository(db)
	} else {
		snapshot := memory.NewSnapshotWriter(cfg.CorpusSnapshotPath)
		writer = snapshot
		finish = snapshot.Flush
	}

	uc := usecase.NewIndexCorpusUseCase(
		storage,
		router,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		writer,
		catalog,
		0,
		logger,
	)
	return &Indexer{UseCase: uc, finish: finish, close: res.close}, nil
}

// Finish persists buffered output. Call it after a successful IndexAll.
func (i *Indexer) Finish() error {
	return i.finish()
}

func (i *Indexer) Close() {
	i.close()
}
