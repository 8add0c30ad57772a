package domain

import (
	"fmt"
	"time"
)

type SessionStatus string

const (
	StatusAwaitingDomainSelection SessionStatus = "awaiting_domain_selection"
	StatusAwaitingClarification   SessionStatus = "awaiting_clarification"
	StatusReady                   SessionStatus = "ready"
	StatusAnswered                SessionStatus = "answered"
	StatusExpired                 SessionStatus = "expired"
	StatusAbandoned               SessionStatus = "abandoned"
)

// Resolution records why a session reached a terminal status.
type Resolution string

const (
	ResolutionNone          Resolution = ""
	ResolutionAnswered      Resolution = "answered"
	ResolutionEmptyPool     Resolution = "empty_pool"
	ResolutionIdleTimeout   Resolution = "idle_timeout"
	ResolutionRoundLimit    Resolution = "round_limit"
	ResolutionInconsistency Resolution = "internal_inconsistency"
)

func (s SessionStatus) rank() int {
	switch s {
	case StatusAwaitingDomainSelection:
		return 0
	case StatusAwaitingClarification:
		return 1
	case StatusReady:
		return 2
	case StatusAnswered, StatusExpired, StatusAbandoned:
		return 3
	default:
		return -1
	}
}

func (s SessionStatus) Valid() bool {
	return s.rank() >= 0
}

func (s SessionStatus) IsTerminal() bool {
	return s.rank() == 3
}

type ClarificationTurn struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ThreadSession is the conversation state for one question in a thread.
type ThreadSession struct {
	Key              string              `json:"key"`
	ThreadKey        string              `json:"thread_key"`
	Domain           string              `json:"domain,omitempty"`
	OriginalQuestion string              `json:"original_question"`
	Turns            []ClarificationTurn `json:"turns"`
	PendingQuestions []string            `json:"pending_questions,omitempty"`
	Round            int                 `json:"round"`
	Status           SessionStatus       `json:"status"`
	Resolution       Resolution          `json:"resolution,omitempty"`
	ResolvedQuestion string              `json:"resolved_question,omitempty"`
	BestEffort       bool                `json:"best_effort,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	LastActivityAt   time.Time           `json:"last_activity_at"`
}

// Transition moves the session forward. Self-loops are allowed only for
// awaiting_clarification; any regression or move out of a terminal status
// is an inconsistency.
func (s *ThreadSession) Transition(next SessionStatus) error {
	if !next.Valid() {
		return WrapError(ErrInternalInconsistency, "session transition", fmt.Errorf("unknown status %q", next))
	}
	cur := s.Status
	if cur.IsTerminal() {
		return WrapError(ErrInternalInconsistency, "session transition", fmt.Errorf("session %s is terminal (%s)", s.Key, cur))
	}
	if next == cur && cur != StatusAwaitingClarification {
		return WrapError(ErrInternalInconsistency, "session transition", fmt.Errorf("repeated status %s", cur))
	}
	if next.rank() < cur.rank() {
		return WrapError(ErrInternalInconsistency, "session transition", fmt.Errorf("status regression %s -> %s", cur, next))
	}
	s.Status = next
	return nil
}

// Terminate forces the session into a terminal status regardless of where it is.
func (s *ThreadSession) Terminate(status SessionStatus, resolution Resolution) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = status
	s.Resolution = resolution
	s.PendingQuestions = nil
}

// IdleSince reports whether the session has been inactive for at least ttl at now.
func (s *ThreadSession) IdleSince(now time.Time, ttl time.Duration) bool {
	return !s.LastActivityAt.IsZero() && now.Sub(s.LastActivityAt) >= ttl
}

// Context returns the original question followed by every turn, in order.
func (s *ThreadSession) Context() []string {
	out := make([]string, 0, len(s.Turns)+1)
	if s.OriginalQuestion != "" {
		out = append(out, s.OriginalQuestion)
	}
	for _, t := range s.Turns {
		out = append(out, t.Text)
	}
	return out
}

// Check validates invariants of a session loaded from storage.
func (s *ThreadSession) Check(maxRounds int) error {
	if !s.Status.Valid() {
		return WrapError(ErrInternalInconsistency, "session check", fmt.Errorf("unknown status %q", s.Status))
	}
	if s.Round < 0 || s.Round > maxRounds {
		return WrapError(ErrInternalInconsistency, "session check", fmt.Errorf("round %d outside [0,%d]", s.Round, maxRounds))
	}
	if s.Status != StatusAwaitingDomainSelection && !s.Status.IsTerminal() && s.Domain == "" {
		return WrapError(ErrInternalInconsistency, "session check", fmt.Errorf("status %s without domain", s.Status))
	}
	return nil
}
