package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/junozone1110/faqbot-1/internal/config"
	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
	"github.com/junozone1110/faqbot-1/internal/core/usecase"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/embedding/openai"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/llm/ollama"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/repository/postgres"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/resilience"
	"github.com/junozone1110/faqbot-1/internal/infrastructure/store/memory"
	"github.com/junozone1110/faqbot-1/internal/observability/metrics"
)

type Options struct {
	Service    string
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

type App struct {
	Config  config.Config
	Catalog *domain.Catalog
	Engine  *usecase.ConversationEngine
	Logger  *slog.Logger

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	catalog, err := config.LoadCatalog(cfg.DomainCatalogPath)
	if err != nil {
		return nil, err
	}

	res := &resources{cfg: cfg}
	chunks, err := res.chunkStore(ctx, logger)
	if err != nil {
		res.close()
		return nil, err
	}
	sessions, err := res.sessionStore(ctx)
	if err != nil {
		res.close()
		return nil, err
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder, err := NewEmbedder(cfg, ollamaClient, executor)
	if err != nil {
		res.close()
		return nil, err
	}
	generator := ollama.NewGenerator(ollamaClient, catalog)

	observer := metrics.NewEngineMetrics(opts.Service, registerer)
	policy := cfg.Clarification()
	filter := usecase.NewDomainFilter(catalog)
	retriever := usecase.NewHybridRetriever(filter, chunks, embedder, cfg.Ranking(), usecase.HybridRetrieverOptions{
		EmbedTimeout: policy.EmbedTimeout,
		Observer:     observer,
		Logger:       logger,
	})
	classifier := usecase.NewClarityClassifier(generator, policy, observer, logger)
	engine := usecase.NewConversationEngine(filter, sessions, classifier, retriever, generator, policy, usecase.ConversationOptions{
		Observer: observer,
		Logger:   logger,
	})

	logger.Info("engine_ready",
		"chunk_store", cfg.ChunkStore,
		"session_store", cfg.SessionStore,
		"embedding_provider", cfg.EmbeddingProvider,
		"domains", len(catalog.Domains()),
	)

	return &App{
		Config:  cfg,
		Catalog: catalog,
		Engine:  engine,
		Logger:  logger,
		closeFn: res.close,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewEmbedder returns a nil interface when embeddings are disabled so the
// retriever ranks lexically.
func NewEmbedder(cfg config.Config, client *ollama.Client, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingNone:
		return nil, nil
	case config.EmbeddingOpenAI:
		embedder, err := openai.NewEmbedder(openai.Options{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIEmbedModel,
			Executor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai embedder: %w", err)
		}
		return embedder, nil
	default:
		return ollama.NewEmbedder(client), nil
	}
}

// resources owns the shared Postgres handle when either store needs it.
type resources struct {
	cfg config.Config
	db  *sql.DB
}

func (r *resources) postgres(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := postgres.OpenDB(r.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *resources) chunkStore(ctx context.Context, logger *slog.Logger) (ports.ChunkStore, error) {
	if r.cfg.ChunkStore == config.StorePostgres {
		db, err := r.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewChunkRepository(db), nil
	}
	store, err := memory.LoadSnapshot(r.cfg.CorpusSnapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("corpus_snapshot_missing", "path", r.cfg.CorpusSnapshotPath)
		return memory.NewChunkStore(nil), nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("corpus_snapshot_loaded", "path", r.cfg.CorpusSnapshotPath, "chunks", store.Len())
	return store, nil
}

func (r *resources) sessionStore(ctx context.Context) (ports.SessionStore, error) {
	if r.cfg.SessionStore == config.StorePostgres {
		db, err := r.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewSessionRepository(db), nil
	}
	return memory.NewSessionStore(), nil
}

func (r *resources) close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}
