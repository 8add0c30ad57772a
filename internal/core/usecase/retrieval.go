package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

// HybridRetriever runs domain filtering, lexical and semantic scoring and
// fusion for one query.
type HybridRetriever struct {
	filter       *DomainFilter
	store        ports.ChunkStore
	embedder     ports.Embedder
	lexical      *LexicalScorer
	semantic     SemanticScorer
	ranker       *HybridRanker
	alpha        float64
	embedTimeout time.Duration
	observer     EngineObserver
	logger       *slog.Logger
}

type HybridRetrieverOptions struct {
	EmbedTimeout time.Duration
	Observer     EngineObserver
	Logger       *slog.Logger
}

func NewHybridRetriever(
	filter *DomainFilter,
	store ports.ChunkStore,
	embedder ports.Embedder,
	cfg domain.RankingConfig,
	opts HybridRetrieverOptions,
) *HybridRetriever {
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HybridRetriever{
		filter:       filter,
		store:        store,
		embedder:     embedder,
		lexical:      NewLexicalScorer(cfg.BM25K1, cfg.BM25B),
		ranker:       NewHybridRanker(cfg.TopK, cfg.PerSourceLimit),
		alpha:        cfg.Alpha,
		embedTimeout: opts.EmbedTimeout,
		observer:     opts.Observer,
		logger:       opts.Logger,
	}
}

func (r *HybridRetriever) Retrieve(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	start := time.Now()

	legalDomain, err := r.filter.Validate(q.DomainID)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	loaded, err := r.store.GetPool(ctx, legalDomain.ID)
	if err != nil {
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrTemporary, "load chunk pool", err)
	}
	pool := r.filter.Filter(legalDomain.ID, loaded)
	if len(pool) == 0 {
		return domain.RetrievalResult{}, domain.WrapError(
			domain.ErrEmptyPool,
			"retrieve",
			fmt.Errorf("domain %s has no indexed chunks", legalDomain.ID),
		)
	}

	lexical, _ := r.lexical.Score(QueryTerms(expandLexicalQuery(q.Text, legalDomain)), pool)

	alpha := r.alpha
	semantic, err := r.semanticScores(ctx, q.Text, pool)
	degraded := err != nil
	if degraded {
		alpha = 0
		r.logger.Warn("retrieval_degraded", "domain", legalDomain.ID, "error", err)
	}

	passages := r.ranker.Rank(pool, lexical, semantic, alpha)
	r.observer.RecordRetrieval(time.Since(start), len(pool), degraded)

	return domain.RetrievalResult{
		Passages: passages,
		PoolSize: len(pool),
		Degraded: degraded,
	}, nil
}

// semanticScores makes exactly one embedding call. On failure every chunk
// scores 0.
func (r *HybridRetriever) semanticScores(ctx context.Context, query string, pool []domain.Chunk) ([]float64, error) {
	zeros := make([]float64, len(pool))
	if r.embedder == nil {
		return zeros, domain.WrapError(domain.ErrEmbeddingProvider, "embed query", fmt.Errorf("no embedder configured"))
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	vector, err := r.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		return zeros, domain.WrapError(domain.ErrEmbeddingProvider, "embed query", err)
	}
	if len(vector) == 0 {
		return zeros, domain.WrapError(domain.ErrEmbeddingProvider, "embed query", fmt.Errorf("empty query vector"))
	}
	return r.semantic.Score(vector, pool), nil
}

// expandLexicalQuery appends the domain label and its expansion terms.
func expandLexicalQuery(query string, d domain.LegalDomain) string {
	parts := make([]string, 0, len(d.QueryExpansion)+2)
	if label := strings.TrimSpace(d.Label); label != "" && label != d.ID {
		parts = append(parts, label)
	}
	parts = append(parts, query)
	parts = append(parts, d.QueryExpansion...)
	return strings.Join(parts, " ")
}
