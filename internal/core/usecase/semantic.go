package usecase

import (
	"math"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// SemanticScorer compares one query vector against every chunk embedding.
type SemanticScorer struct{}

func (SemanticScorer) Score(query []float32, pool []domain.Chunk) []float64 {
	scores := make([]float64, len(pool))
	if len(query) == 0 {
		return scores
	}
	for i, c := range pool {
		scores[i] = cosineSimilarity(query, c.Embedding)
	}
	return scores
}

// cosineSimilarity normalizes both vectors. Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}
