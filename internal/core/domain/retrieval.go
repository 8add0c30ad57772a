package domain

// SourceRef identifies a passage used to ground an answer.
type SourceRef struct {
	Index   int     `json:"index"`
	Source  string  `json:"source"`
	Label   string  `json:"label"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

type RetrievalQuery struct {
	DomainID string
	Text     string
}

type RetrievalResult struct {
	Passages []ScoredChunk
	PoolSize int
	Degraded bool
}

type AnswerRequest struct {
	Question   string
	Domain     LegalDomain
	Passages   []ScoredChunk
	BestEffort bool
}

type Answer struct {
	Text    string      `json:"text"`
	Sources []SourceRef `json:"sources"`
}

type ClarityOutcome string

const (
	ClarityReady              ClarityOutcome = "ready"
	ClarityNeedsClarification ClarityOutcome = "needs_clarification"
	ClarityExhausted          ClarityOutcome = "exhausted"
)

type ClarityRequest struct {
	Question string
	Domain   LegalDomain
	History  []string
	Round    int
}

// ClarityVerdict is a validated classifier decision. Forced is set when the
// round budget decided the outcome; FallbackReason is set when the classifier
// output could not be used.
type ClarityVerdict struct {
	Outcome          ClarityOutcome
	FollowUps        []string
	MissingAspects   []string
	CombinedQuestion string
	Forced           bool
	FallbackReason   string
	Cause            error
}

// BestEffort reports whether the answer must carry a disclaimer.
func (v ClarityVerdict) BestEffort() bool {
	return v.Outcome == ClarityReady && (v.Forced || v.FallbackReason != "")
}
