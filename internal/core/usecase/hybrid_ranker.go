package usecase

import (
	"sort"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// HybridRanker fuses min-max normalized lexical and semantic scores.
type HybridRanker struct {
	topK           int
	perSourceLimit int
}

func NewHybridRanker(topK, perSourceLimit int) *HybridRanker {
	if topK <= 0 {
		topK = 5
	}
	if perSourceLimit < 0 {
		perSourceLimit = 0
	}
	return &HybridRanker{topK: topK, perSourceLimit: perSourceLimit}
}

// Rank scores every chunk of pool and returns the top passages. lexical and
// semantic are aligned with pool by index.
func (r *HybridRanker) Rank(pool []domain.Chunk, lexical, semantic []float64, alpha float64) []domain.ScoredChunk {
	if len(pool) == 0 {
		return []domain.ScoredChunk{}
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	lexNorm := minMaxNormalize(lexical, len(pool))
	semNorm := minMaxNormalize(semantic, len(pool))

	scored := make([]domain.ScoredChunk, len(pool))
	for i, c := range pool {
		scored[i] = domain.ScoredChunk{
			Chunk:        c,
			Lexical:      valueAt(lexical, i),
			Semantic:     valueAt(semantic, i),
			LexicalNorm:  lexNorm[i],
			SemanticNorm: semNorm[i],
			Fused:        alpha*semNorm[i] + (1-alpha)*lexNorm[i],
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Fused != scored[j].Fused {
			return scored[i].Fused > scored[j].Fused
		}
		if scored[i].Semantic != scored[j].Semantic {
			return scored[i].Semantic > scored[j].Semantic
		}
		return scored[i].Chunk.Ordinal < scored[j].Chunk.Ordinal
	})

	return r.trim(scored)
}

func (r *HybridRanker) trim(scored []domain.ScoredChunk) []domain.ScoredChunk {
	if r.perSourceLimit <= 0 {
		if len(scored) <= r.topK {
			return scored
		}
		return scored[:r.topK]
	}

	out := make([]domain.ScoredChunk, 0, r.topK)
	perSource := make(map[string]int, r.topK)
	for _, s := range scored {
		if len(out) == r.topK {
			break
		}
		if perSource[s.Chunk.Source] >= r.perSourceLimit {
			continue
		}
		perSource[s.Chunk.Source]++
		out = append(out, s)
	}
	return out
}

// minMaxNormalize maps values onto [0,1]. A uniform set maps to 0.5.
func minMaxNormalize(values []float64, n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	minV, maxV := valueAt(values, 0), valueAt(values, 0)
	for i := 1; i < n; i++ {
		v := valueAt(values, i)
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV
	for i := range out {
		if span <= 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (valueAt(values, i) - minV) / span
	}
	return out
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
