package domain

// Chunk is an indexed unit of source text. It is created at ingestion and
// never mutated by the engine.
type Chunk struct {
	ID        string         `json:"id"`
	Ordinal   int            `json:"ordinal"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Domains   []string       `json:"domains"`
	Embedding []float32      `json:"embedding,omitempty"`
	Terms     map[string]int `json:"terms,omitempty"`
	Length    int            `json:"length"`
}

// HasDomain reports whether the chunk is tagged with domainID.
func (c Chunk) HasDomain(domainID string) bool {
	for _, d := range c.Domains {
		if d == domainID {
			return true
		}
	}
	return false
}

// CorpusStats are lexical statistics of one filtered pool.
type CorpusStats struct {
	DocFreq   map[string]int
	AvgDocLen float64
	DocCount  int
}

// ScoredChunk pairs a chunk with its per-query scores.
type ScoredChunk struct {
	Chunk        Chunk   `json:"chunk"`
	Lexical      float64 `json:"lexical"`
	Semantic     float64 `json:"semantic"`
	LexicalNorm  float64 `json:"lexical_norm"`
	SemanticNorm float64 `json:"semantic_norm"`
	Fused        float64 `json:"fused"`
}
