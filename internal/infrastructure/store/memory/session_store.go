package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// SessionStore keeps thread sessions in process memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ThreadSession
	byThread map[string][]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.ThreadSession),
		byThread: make(map[string][]string),
	}
}

func (s *SessionStore) Active(_ context.Context, threadKey string) (*domain.ThreadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byThread[threadKey]
	if len(keys) == 0 {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "active session", fmt.Errorf("thread %s", threadKey))
	}
	sess := cloneSession(s.sessions[keys[len(keys)-1]])
	return &sess, nil
}

func (s *SessionStore) Get(_ context.Context, key string) (*domain.ThreadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("key %s", key))
	}
	out := cloneSession(sess)
	return &out, nil
}

func (s *SessionStore) Save(_ context.Context, sess *domain.ThreadSession) error {
	if sess == nil || sess.Key == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save session", fmt.Errorf("session key is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.Key]; !ok {
		s.byThread[sess.ThreadKey] = append(s.byThread[sess.ThreadKey], sess.Key)
	}
	s.sessions[sess.Key] = cloneSession(*sess)
	return nil
}

func (s *SessionStore) ListIdle(_ context.Context, cutoff time.Time) ([]domain.ThreadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ThreadSession, 0)
	for _, sess := range s.sessions {
		if sess.Status.IsTerminal() || sess.LastActivityAt.After(cutoff) {
			continue
		}
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].LastActivityAt.Before(out[j].LastActivityAt)
	})
	return out, nil
}

func cloneSession(s domain.ThreadSession) domain.ThreadSession {
	s.Turns = append([]domain.ClarificationTurn(nil), s.Turns...)
	s.PendingQuestions = append([]string(nil), s.PendingQuestions...)
	return s
}
