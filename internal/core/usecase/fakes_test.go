package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type chunkStoreFake struct {
	chunks []domain.Chunk
	err    error
	calls  int
}

func (f *chunkStoreFake) GetPool(_ context.Context, domainID string) ([]domain.Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Chunk, 0, len(f.chunks))
	for _, c := range f.chunks {
		if domainID == "" || c.HasDomain(domainID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type reasoningFake struct {
	responses []string
	err       error
	prompts   []string
	onCall    func()
}

func (f *reasoningFake) GenerateJSONFromPrompt(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return `{"ready": true}`, nil
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *reasoningFake) calls() int {
	return len(f.prompts)
}

type generatorFake struct {
	text     string
	err      error
	requests []domain.AnswerRequest
	onCall   func()
}

func (f *generatorFake) GenerateAnswer(_ context.Context, req domain.AnswerRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type sessionStoreFake struct {
	mu       sync.Mutex
	sessions map[string]domain.ThreadSession
	order    []string
	saveErr  error
	saves    int
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{sessions: make(map[string]domain.ThreadSession)}
}

func (f *sessionStoreFake) Active(_ context.Context, threadKey string) (*domain.ThreadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		s := f.sessions[f.order[i]]
		if s.ThreadKey == threadKey {
			copySession := cloneSession(s)
			return &copySession, nil
		}
	}
	return nil, domain.WrapError(domain.ErrSessionNotFound, "active session", fmt.Errorf("thread %s", threadKey))
}

func (f *sessionStoreFake) Get(_ context.Context, key string) (*domain.ThreadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("key %s", key))
	}
	copySession := cloneSession(s)
	return &copySession, nil
}

func (f *sessionStoreFake) Save(_ context.Context, s *domain.ThreadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	if _, ok := f.sessions[s.Key]; !ok {
		f.order = append(f.order, s.Key)
	}
	f.sessions[s.Key] = cloneSession(*s)
	return nil
}

func (f *sessionStoreFake) ListIdle(_ context.Context, cutoff time.Time) ([]domain.ThreadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ThreadSession, 0)
	for _, key := range f.order {
		s := f.sessions[key]
		if !s.Status.IsTerminal() && !s.LastActivityAt.After(cutoff) {
			out = append(out, cloneSession(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	return out, nil
}

func (f *sessionStoreFake) put(s domain.ThreadSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.Key]; !ok {
		f.order = append(f.order, s.Key)
	}
	f.sessions[s.Key] = s
}

func (f *sessionStoreFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func cloneSession(s domain.ThreadSession) domain.ThreadSession {
	s.Turns = append([]domain.ClarificationTurn(nil), s.Turns...)
	s.PendingQuestions = append([]string(nil), s.PendingQuestions...)
	return s
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type observerFake struct {
	mu          sync.Mutex
	actions     []domain.ActionKind
	transitions [][2]domain.SessionStatus
	verdicts    []domain.ClarityOutcome
	degraded    int
}

func (o *observerFake) RecordAction(kind domain.ActionKind, _ domain.ErrorKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions = append(o.actions, kind)
}

func (o *observerFake) RecordClarity(outcome domain.ClarityOutcome, _ bool, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdicts = append(o.verdicts, outcome)
}

func (o *observerFake) RecordRetrieval(_ time.Duration, _ int, degraded bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if degraded {
		o.degraded++
	}
}

func (o *observerFake) RecordTransition(from, to domain.SessionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, [2]domain.SessionStatus{from, to})
}

func testCatalog() *domain.Catalog {
	c, err := domain.NewCatalog([]domain.LegalDomain{
		{ID: "consumer", SourcePatterns: []string{"consumer"}},
		{ID: "privacy", SourcePatterns: []string{"privacy"}},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
