package usecase

import (
	"testing"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

func rankerPool(n int) []domain.Chunk {
	pool := make([]domain.Chunk, n)
	for i := range pool {
		pool[i] = domain.Chunk{ID: string(rune('a' + i)), Ordinal: i, Source: "doc.pdf"}
	}
	return pool
}

func rankedIDs(scored []domain.ScoredChunk) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Chunk.ID
	}
	return out
}

func assertIDs(t *testing.T, got []domain.ScoredChunk, want ...string) {
	t.Helper()
	ids := rankedIDs(got)
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestRankAlphaZeroFollowsLexicalOrder(t *testing.T) {
	pool := rankerPool(4)
	lexical := []float64{0.1, 3, 2, 0}
	semantic := []float64{0.9, 0.1, 0.5, 0.8}
	got := NewHybridRanker(10, 0).Rank(pool, lexical, semantic, 0)
	assertIDs(t, got, "b", "c", "a", "d")
}

func TestRankAlphaOneFollowsSemanticOrder(t *testing.T) {
	pool := rankerPool(4)
	lexical := []float64{0.1, 3, 2, 0}
	semantic := []float64{0.9, 0.1, 0.5, 0.8}
	got := NewHybridRanker(10, 0).Rank(pool, lexical, semantic, 1)
	assertIDs(t, got, "a", "d", "c", "b")
}

func TestMinMaxNormalizeUniformYieldsHalf(t *testing.T) {
	for _, values := range [][]float64{{7}, {2, 2, 2}, {0, 0}} {
		for _, v := range minMaxNormalize(values, len(values)) {
			if v != 0.5 {
				t.Fatalf("expected 0.5 for uniform %v, got %v", values, v)
			}
		}
	}
}

func TestRankTieBreaksBySemanticThenOrdinal(t *testing.T) {
	pool := rankerPool(3)
	lexical := []float64{1, 1, 1}
	semantic := []float64{0.2, 0.2, 0.4}
	got := NewHybridRanker(3, 0).Rank(pool, lexical, semantic, 0)
	assertIDs(t, got, "c", "a", "b")
}

func TestRankEmptyPoolAndOversizedK(t *testing.T) {
	ranker := NewHybridRanker(50, 0)
	if got := ranker.Rank(nil, nil, nil, 0.5); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(got))
	}
	got := ranker.Rank(rankerPool(3), []float64{1, 2, 3}, []float64{0, 0, 0}, 0.5)
	if len(got) != 3 {
		t.Fatalf("expected whole pool when K > pool, got %d", len(got))
	}
}

func TestRankTopKTruncates(t *testing.T) {
	got := NewHybridRanker(2, 0).Rank(rankerPool(5), []float64{5, 4, 3, 2, 1}, nil, 0)
	assertIDs(t, got, "a", "b")
}

func TestRankPerSourceLimit(t *testing.T) {
	pool := rankerPool(4)
	pool[0].Source = "law.pdf"
	pool[1].Source = "law.pdf"
	pool[2].Source = "law.pdf"
	pool[3].Source = "faq.pdf"
	got := NewHybridRanker(3, 2).Rank(pool, []float64{4, 3, 2, 1}, nil, 0)
	assertIDs(t, got, "a", "b", "d")
}

func TestRankFusedScoreBlend(t *testing.T) {
	got := NewHybridRanker(2, 0).Rank(rankerPool(2), []float64{0, 10}, []float64{1, 0}, 0.25)
	if got[0].Chunk.ID != "b" || got[0].Fused != 0.75 || got[1].Fused != 0.25 {
		t.Fatalf("unexpected fused scores: %+v", got)
	}
}
