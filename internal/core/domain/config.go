package domain

import (
	"fmt"
	"time"
)

// RankingConfig drives lexical scoring and fusion.
type RankingConfig struct {
	Alpha          float64 `json:"alpha"`
	TopK           int     `json:"top_k"`
	BM25K1         float64 `json:"bm25_k1"`
	BM25B          float64 `json:"bm25_b"`
	PerSourceLimit int     `json:"per_source_limit"`
}

func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		Alpha:  0.5,
		TopK:   5,
		BM25K1: 1.5,
		BM25B:  0.75,
	}
}

func (c RankingConfig) Validate() error {
	switch {
	case c.Alpha < 0 || c.Alpha > 1:
		return WrapError(ErrInvalidInput, "ranking config", fmt.Errorf("alpha must be within [0,1], got %v", c.Alpha))
	case c.TopK <= 0:
		return WrapError(ErrInvalidInput, "ranking config", fmt.Errorf("top_k must be positive, got %d", c.TopK))
	case c.BM25K1 < 0:
		return WrapError(ErrInvalidInput, "ranking config", fmt.Errorf("bm25 k1 must be non-negative, got %v", c.BM25K1))
	case c.BM25B < 0 || c.BM25B > 1:
		return WrapError(ErrInvalidInput, "ranking config", fmt.Errorf("bm25 b must be within [0,1], got %v", c.BM25B))
	case c.PerSourceLimit < 0:
		return WrapError(ErrInvalidInput, "ranking config", fmt.Errorf("per_source_limit must be non-negative, got %d", c.PerSourceLimit))
	}
	return nil
}

// RoundLimitPolicy selects what happens once the clarification budget is spent.
type RoundLimitPolicy string

const (
	RoundLimitForceReady RoundLimitPolicy = "force_ready"
	RoundLimitAbandon    RoundLimitPolicy = "abandon"
)

// ClarificationPolicy bounds the clarification loop and session lifetime.
type ClarificationPolicy struct {
	MaxRounds       int              `json:"max_rounds"`
	MaxFollowUps    int              `json:"max_follow_ups"`
	RoundLimit      RoundLimitPolicy `json:"round_limit"`
	IdleTimeout     time.Duration    `json:"idle_timeout"`
	EmbedTimeout    time.Duration    `json:"embed_timeout"`
	ClassifyTimeout time.Duration    `json:"classify_timeout"`
	AnswerTimeout   time.Duration    `json:"answer_timeout"`
}

func DefaultClarificationPolicy() ClarificationPolicy {
	return ClarificationPolicy{
		MaxRounds:       3,
		MaxFollowUps:    3,
		RoundLimit:      RoundLimitForceReady,
		IdleTimeout:     30 * time.Minute,
		EmbedTimeout:    10 * time.Second,
		ClassifyTimeout: 20 * time.Second,
		AnswerTimeout:   60 * time.Second,
	}
}

func (p ClarificationPolicy) Validate() error {
	switch {
	case p.MaxRounds <= 0:
		return WrapError(ErrInvalidInput, "clarification policy", fmt.Errorf("max_rounds must be positive, got %d", p.MaxRounds))
	case p.MaxFollowUps <= 0:
		return WrapError(ErrInvalidInput, "clarification policy", fmt.Errorf("max_follow_ups must be positive, got %d", p.MaxFollowUps))
	case p.RoundLimit != RoundLimitForceReady && p.RoundLimit != RoundLimitAbandon:
		return WrapError(ErrInvalidInput, "clarification policy", fmt.Errorf("unsupported round limit policy %q", p.RoundLimit))
	case p.IdleTimeout <= 0:
		return WrapError(ErrInvalidInput, "clarification policy", fmt.Errorf("idle_timeout must be positive"))
	case p.EmbedTimeout <= 0 || p.ClassifyTimeout <= 0 || p.AnswerTimeout <= 0:
		return WrapError(ErrInvalidInput, "clarification policy", fmt.Errorf("call timeouts must be positive"))
	}
	return nil
}
