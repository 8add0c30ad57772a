package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

func newTestRetriever(store *chunkStoreFake, embedder *embedderFake) *HybridRetriever {
	cfg := domain.DefaultRankingConfig()
	cfg.TopK = 10
	return NewHybridRetriever(NewDomainFilter(testCatalog()), store, embedder, cfg, HybridRetrieverOptions{})
}

// scenarioPool has three lexical matches (c0..c2) and four semantic matches
// (c0, c1, c3, c4); c0 and c1 match both.
func scenarioPool() []domain.Chunk {
	lexicalHit := map[int]bool{0: true, 1: true, 2: true}
	semanticHit := map[int]bool{0: true, 1: true, 3: true, 4: true}
	pool := make([]domain.Chunk, 0, 10)
	for i := 0; i < 10; i++ {
		terms := map[string]int{"filler": 4}
		if lexicalHit[i] {
			terms = map[string]int{"refund": 1, "filler": 3}
		}
		embedding := []float32{0, 1}
		if semanticHit[i] {
			embedding = []float32{1, 0}
		}
		pool = append(pool, domain.Chunk{
			ID:        "c" + string(rune('0'+i)),
			Ordinal:   i,
			Source:    "consumer-faq.pdf",
			Domains:   []string{"consumer"},
			Terms:     terms,
			Length:    4,
			Embedding: embedding,
		})
	}
	return pool
}

func TestRetrieveOverlappingMatchesRankFirst(t *testing.T) {
	store := &chunkStoreFake{chunks: scenarioPool()}
	embedder := &embedderFake{vector: []float32{1, 0}}

	result, err := newTestRetriever(store, embedder).Retrieve(context.Background(), domain.RetrievalQuery{
		DomainID: "consumer",
		Text:     "refund",
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if result.Degraded {
		t.Fatalf("expected non-degraded retrieval")
	}

	overlap := map[string]bool{"c0": true, "c1": true}
	single := map[string]bool{"c2": true, "c3": true, "c4": true}
	lowestOverlap := -1.0
	highestSingle := -1.0
	for _, p := range result.Passages {
		if overlap[p.Chunk.ID] && (lowestOverlap < 0 || p.Fused < lowestOverlap) {
			lowestOverlap = p.Fused
		}
		if single[p.Chunk.ID] && p.Fused > highestSingle {
			highestSingle = p.Fused
		}
	}
	if lowestOverlap < highestSingle {
		t.Fatalf("expected overlapping chunks to rank at or above single matches: overlap=%v single=%v", lowestOverlap, highestSingle)
	}
	if result.Passages[0].Chunk.ID != "c0" || result.Passages[1].Chunk.ID != "c1" {
		t.Fatalf("expected c0, c1 first, got %v", rankedIDs(result.Passages))
	}
	if embedder.calls != 1 {
		t.Fatalf("expected exactly one embedding call, got %d", embedder.calls)
	}
}

func TestRetrieveUnknownDomainSkipsPoolAccess(t *testing.T) {
	store := &chunkStoreFake{chunks: scenarioPool()}
	_, err := newTestRetriever(store, &embedderFake{}).Retrieve(context.Background(), domain.RetrievalQuery{
		DomainID: "tax_law_v2",
		Text:     "refund",
	})
	if !domain.IsKind(err, domain.ErrInvalidDomain) {
		t.Fatalf("expected invalid domain error, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("expected no pool access, got %d calls", store.calls)
	}
}

func TestRetrieveEmbeddingFailureFallsBackToLexical(t *testing.T) {
	store := &chunkStoreFake{chunks: scenarioPool()}
	embedder := &embedderFake{err: errors.New("provider down")}

	result, err := newTestRetriever(store, embedder).Retrieve(context.Background(), domain.RetrievalQuery{
		DomainID: "consumer",
		Text:     "refund",
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded flag")
	}
	if len(result.Passages) == 0 {
		t.Fatalf("expected non-empty lexical ranking")
	}
	for _, p := range result.Passages {
		if p.Semantic != 0 {
			t.Fatalf("expected zero semantic score, got %v for %s", p.Semantic, p.Chunk.ID)
		}
		if p.Fused != p.LexicalNorm {
			t.Fatalf("expected lexical-only fusion for %s: fused=%v lex=%v", p.Chunk.ID, p.Fused, p.LexicalNorm)
		}
	}
	for i, id := range []string{"c0", "c1", "c2"} {
		if result.Passages[i].Chunk.ID != id {
			t.Fatalf("expected lexical matches first, got %v", rankedIDs(result.Passages))
		}
	}
}

func TestRetrieveEmptyDomainPool(t *testing.T) {
	store := &chunkStoreFake{chunks: scenarioPool()}
	_, err := newTestRetriever(store, &embedderFake{vector: []float32{1, 0}}).Retrieve(context.Background(), domain.RetrievalQuery{
		DomainID: "privacy",
		Text:     "refund",
	})
	if !domain.IsKind(err, domain.ErrEmptyPool) {
		t.Fatalf("expected empty pool error, got %v", err)
	}
}

func TestRetrieveStoreFailureIsTemporary(t *testing.T) {
	store := &chunkStoreFake{err: errors.New("db down")}
	_, err := newTestRetriever(store, &embedderFake{}).Retrieve(context.Background(), domain.RetrievalQuery{
		DomainID: "consumer",
		Text:     "refund",
	})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestExpandLexicalQueryAddsLabelAndTerms(t *testing.T) {
	got := expandLexicalQuery("ポイント還元", domain.LegalDomain{
		ID:             "keihyouhou",
		Label:          "景表法",
		QueryExpansion: []string{"適用除外"},
	})
	if got != "景表法 ポイント還元 適用除外" {
		t.Fatalf("unexpected expanded query %q", got)
	}
}
