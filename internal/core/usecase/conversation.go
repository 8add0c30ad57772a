package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

const bestEffortDisclaimer = "※ご質問の前提を十分に確認できなかったため、一般的な情報に基づく回答です。具体的な判断は専門家にご確認ください。"

// Retriever is the retrieval stage used by the engine.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error)
}

// Classifier is the clarity stage used by the engine.
type Classifier interface {
	Classify(ctx context.Context, req domain.ClarityRequest) domain.ClarityVerdict
}

type ConversationOptions struct {
	Now      func() time.Time
	NewID    func() string
	Observer EngineObserver
	Logger   *slog.Logger
}

// ConversationEngine drives one thread session per question through domain
// selection, clarification, retrieval and answering. Work is serialized per
// thread key.
type ConversationEngine struct {
	filter     *DomainFilter
	sessions   ports.SessionStore
	classifier Classifier
	retriever  Retriever
	generator  ports.AnswerGenerator
	policy     domain.ClarificationPolicy
	locks      *keyedMutex
	now        func() time.Time
	newID      func() string
	observer   EngineObserver
	logger     *slog.Logger
}

func NewConversationEngine(
	filter *DomainFilter,
	sessions ports.SessionStore,
	classifier Classifier,
	retriever Retriever,
	generator ports.AnswerGenerator,
	policy domain.ClarificationPolicy,
	opts ConversationOptions,
) *ConversationEngine {
	defaults := domain.DefaultClarificationPolicy()
	if policy.MaxRounds <= 0 {
		policy.MaxRounds = defaults.MaxRounds
	}
	if policy.IdleTimeout <= 0 {
		policy.IdleTimeout = defaults.IdleTimeout
	}
	if policy.AnswerTimeout <= 0 {
		policy.AnswerTimeout = defaults.AnswerTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ConversationEngine{
		filter:     filter,
		sessions:   sessions,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		policy:     policy,
		locks:      newKeyedMutex(),
		now:        opts.Now,
		newID:      opts.NewID,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
}

// HandleMessage processes one inbound message. Reportable outcomes come back
// as a report_error action with a nil error; a non-nil error means the
// message itself could not be processed.
func (e *ConversationEngine) HandleMessage(ctx context.Context, msg domain.InboundMessage) (domain.OutboundAction, error) {
	msg.ThreadKey = strings.TrimSpace(msg.ThreadKey)
	msg.SelectedDomain = strings.TrimSpace(msg.SelectedDomain)
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.ThreadKey == "" {
		err := domain.WrapError(domain.ErrInvalidInput, "handle message", errors.New("thread key is required"))
		return e.finish(reportError(nil, msg.ThreadKey, domain.ErrorKindInvalidInput, "")), err
	}

	unlock := e.locks.Lock(msg.ThreadKey)
	defer unlock()

	action, err := e.handle(ctx, msg)
	if err != nil {
		e.logger.Error("handle_message_failed", "thread_key", msg.ThreadKey, "error", err)
	}
	return e.finish(action), err
}

func (e *ConversationEngine) handle(ctx context.Context, msg domain.InboundMessage) (domain.OutboundAction, error) {
	now := e.now()

	sess, err := e.sessions.Active(ctx, msg.ThreadKey)
	if err != nil && !domain.IsKind(err, domain.ErrSessionNotFound) {
		return e.failTemporary(nil, msg.ThreadKey, fmt.Errorf("load active session: %w", err))
	}
	if err != nil {
		sess = nil
	}

	if sess != nil && !sess.Status.IsTerminal() {
		if checkErr := sess.Check(e.policy.MaxRounds); checkErr != nil {
			return e.inconsistent(ctx, sess, checkErr)
		}
		if sess.IdleSince(now, e.policy.IdleTimeout) {
			if err := e.expire(ctx, sess); err != nil {
				return e.failTemporary(sess, msg.ThreadKey, err)
			}
			sess = nil
		}
	}

	if sess == nil || sess.Status.IsTerminal() {
		return e.startSession(ctx, msg, now, true)
	}

	sess.LastActivityAt = now
	switch sess.Status {
	case domain.StatusAwaitingDomainSelection:
		return e.selectDomain(ctx, sess, msg)
	case domain.StatusAwaitingClarification:
		if msg.Text == "" {
			err := domain.WrapError(domain.ErrInvalidInput, "handle clarification", errors.New("empty message text"))
			return reportError(sess, msg.ThreadKey, domain.ErrorKindInvalidInput, ""), err
		}
		e.appendTurn(sess, msg.Text, now)
		return e.clarify(ctx, sess)
	case domain.StatusReady:
		if msg.Text != "" {
			e.appendTurn(sess, msg.Text, now)
			sess.ResolvedQuestion = ""
		}
		return e.answer(ctx, sess)
	default:
		return e.inconsistent(ctx, sess, fmt.Errorf("unexpected status %s", sess.Status))
	}
}

// startSession opens a new session for the message. allowSelection is false
// when the session replaces one that expired mid-call.
func (e *ConversationEngine) startSession(ctx context.Context, msg domain.InboundMessage, now time.Time, allowSelection bool) (domain.OutboundAction, error) {
	if msg.Text == "" {
		err := domain.WrapError(domain.ErrInvalidInput, "start session", errors.New("a question is required to start a session"))
		return reportError(nil, msg.ThreadKey, domain.ErrorKindInvalidInput, ""), err
	}

	key := e.sessionKey(msg)
	if _, err := e.sessions.Get(ctx, key); err == nil {
		key = key + "-" + e.newID()
	}

	sess := &domain.ThreadSession{
		Key:              key,
		ThreadKey:        msg.ThreadKey,
		OriginalQuestion: msg.Text,
		Turns:            []domain.ClarificationTurn{},
		Status:           domain.StatusAwaitingDomainSelection,
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	e.logger.Info("session_started", "session_key", sess.Key, "thread_key", sess.ThreadKey)

	if allowSelection && msg.SelectedDomain != "" {
		return e.selectDomain(ctx, sess, domain.InboundMessage{
			ThreadKey:      msg.ThreadKey,
			MessageTS:      msg.MessageTS,
			SelectedDomain: msg.SelectedDomain,
		})
	}

	if err := e.save(ctx, sess); err != nil {
		return e.failTemporary(sess, msg.ThreadKey, err)
	}
	return askDomainSelection(sess, e.filter.Catalog().Domains()), nil
}

func (e *ConversationEngine) selectDomain(ctx context.Context, sess *domain.ThreadSession, msg domain.InboundMessage) (domain.OutboundAction, error) {
	selection := msg.SelectedDomain
	text := msg.Text
	if selection == "" && text != "" {
		if d, ok := matchDomain(e.filter.Catalog(), text); ok {
			selection = d.ID
			text = ""
		}
	}
	if text != "" {
		e.appendTurn(sess, text, sess.LastActivityAt)
	}

	if selection == "" {
		if err := e.save(ctx, sess); err != nil {
			return e.failTemporary(sess, sess.ThreadKey, err)
		}
		return askDomainSelection(sess, e.filter.Catalog().Domains()), nil
	}

	legalDomain, err := e.filter.Validate(selection)
	if err != nil {
		e.logger.Warn("invalid_domain_selection", "session_key", sess.Key, "domain", selection)
		if saveErr := e.save(ctx, sess); saveErr != nil {
			return e.failTemporary(sess, sess.ThreadKey, saveErr)
		}
		action := reportError(sess, sess.ThreadKey, domain.ErrorKindInvalidDomain, fmt.Sprintf("unknown domain %q", selection))
		action.Domains = e.filter.Catalog().Domains()
		return action, nil
	}

	sess.Domain = legalDomain.ID
	if err := e.transition(sess, domain.StatusAwaitingClarification); err != nil {
		return e.inconsistent(ctx, sess, err)
	}
	return e.clarify(ctx, sess)
}

func (e *ConversationEngine) clarify(ctx context.Context, sess *domain.ThreadSession) (domain.OutboundAction, error) {
	legalDomain, err := e.filter.Validate(sess.Domain)
	if err != nil {
		return e.inconsistent(ctx, sess, err)
	}

	verdict := e.classifier.Classify(ctx, domain.ClarityRequest{
		Question: sess.OriginalQuestion,
		Domain:   legalDomain,
		History:  turnTexts(sess.Turns),
		Round:    sess.Round,
	})
	if !verdict.Forced && e.expiredDuringCall(sess) {
		return e.restartAfterExpiry(ctx, sess)
	}

	switch verdict.Outcome {
	case domain.ClarityNeedsClarification:
		if sess.Round+1 > e.policy.MaxRounds {
			return e.inconsistent(ctx, sess, fmt.Errorf("round %d would exceed max %d", sess.Round+1, e.policy.MaxRounds))
		}
		sess.Round++
		sess.PendingQuestions = verdict.FollowUps
		if err := e.transition(sess, domain.StatusAwaitingClarification); err != nil {
			return e.inconsistent(ctx, sess, err)
		}
		if err := e.save(ctx, sess); err != nil {
			return e.failTemporary(sess, sess.ThreadKey, err)
		}
		return domain.OutboundAction{
			Kind:       domain.ActionAskClarification,
			SessionKey: sess.Key,
			ThreadKey:  sess.ThreadKey,
			Questions:  verdict.FollowUps,
		}, nil

	case domain.ClarityExhausted:
		e.terminate(sess, domain.StatusAbandoned, domain.ResolutionRoundLimit)
		if err := e.save(ctx, sess); err != nil {
			return e.failTemporary(sess, sess.ThreadKey, err)
		}
		return reportError(sess, sess.ThreadKey, domain.ErrorKindUnableToClarify, "clarification round limit reached"), nil

	case domain.ClarityReady:
		sess.PendingQuestions = nil
		sess.ResolvedQuestion = verdict.CombinedQuestion
		sess.BestEffort = verdict.BestEffort()
		if err := e.transition(sess, domain.StatusReady); err != nil {
			return e.inconsistent(ctx, sess, err)
		}
		if err := e.save(ctx, sess); err != nil {
			return e.failTemporary(sess, sess.ThreadKey, err)
		}
		return e.answer(ctx, sess)

	default:
		return e.inconsistent(ctx, sess, fmt.Errorf("unknown clarity outcome %q", verdict.Outcome))
	}
}

func (e *ConversationEngine) answer(ctx context.Context, sess *domain.ThreadSession) (domain.OutboundAction, error) {
	legalDomain, err := e.filter.Validate(sess.Domain)
	if err != nil {
		return e.inconsistent(ctx, sess, err)
	}

	query := sess.ResolvedQuestion
	if query == "" {
		query = joinSessionContext(sess)
	}

	result, err := e.retriever.Retrieve(ctx, domain.RetrievalQuery{DomainID: legalDomain.ID, Text: query})
	if e.expiredDuringCall(sess) {
		return e.restartAfterExpiry(ctx, sess)
	}
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrEmptyPool):
		e.logger.Warn("empty_pool", "session_key", sess.Key, "domain", legalDomain.ID)
		e.terminate(sess, domain.StatusAnswered, domain.ResolutionEmptyPool)
		if saveErr := e.save(ctx, sess); saveErr != nil {
			return e.failTemporary(sess, sess.ThreadKey, saveErr)
		}
		return reportError(sess, sess.ThreadKey, domain.ErrorKindEmptyPool, ""), nil
	case domain.IsKind(err, domain.ErrInvalidDomain):
		return e.inconsistent(ctx, sess, err)
	default:
		if saveErr := e.save(ctx, sess); saveErr != nil {
			return e.failTemporary(sess, sess.ThreadKey, saveErr)
		}
		e.logger.Error("retrieval_failed", "session_key", sess.Key, "error", err)
		return reportError(sess, sess.ThreadKey, domain.ErrorKindOf(err), ""), nil
	}

	answerCtx, cancel := context.WithTimeout(ctx, e.policy.AnswerTimeout)
	defer cancel()

	text, err := e.generator.GenerateAnswer(answerCtx, domain.AnswerRequest{
		Question:   query,
		Domain:     legalDomain,
		Passages:   result.Passages,
		BestEffort: sess.BestEffort,
	})
	if e.expiredDuringCall(sess) {
		return e.restartAfterExpiry(ctx, sess)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty answer")
	}
	if err != nil {
		e.logger.Error("answer_generation_failed", "session_key", sess.Key, "error", err)
		if saveErr := e.save(ctx, sess); saveErr != nil {
			return e.failTemporary(sess, sess.ThreadKey, saveErr)
		}
		return reportError(sess, sess.ThreadKey, domain.ErrorKindAnswerUnavailable, ""), nil
	}

	text = strings.TrimSpace(text)
	if sess.BestEffort {
		text = text + "\n\n" + bestEffortDisclaimer
	}

	if err := e.transition(sess, domain.StatusAnswered); err != nil {
		return e.inconsistent(ctx, sess, err)
	}
	sess.Resolution = domain.ResolutionAnswered
	if err := e.save(ctx, sess); err != nil {
		return e.failTemporary(sess, sess.ThreadKey, err)
	}

	return domain.OutboundAction{
		Kind:       domain.ActionDeliverAnswer,
		SessionKey: sess.Key,
		ThreadKey:  sess.ThreadKey,
		Text:       text,
		Sources:    buildSourceRefs(e.filter.Catalog(), result.Passages),
		Degraded:   result.Degraded,
		BestEffort: sess.BestEffort,
	}, nil
}

// Session returns a snapshot of one session.
func (e *ConversationEngine) Session(ctx context.Context, key string) (*domain.ThreadSession, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get session", errors.New("session key is required"))
	}
	return e.sessions.Get(ctx, key)
}

// ExpireIdle moves every session idle for longer than the idle timeout to
// expired and returns how many were expired.
func (e *ConversationEngine) ExpireIdle(ctx context.Context, now time.Time) (int, error) {
	candidates, err := e.sessions.ListIdle(ctx, now.Add(-e.policy.IdleTimeout))
	if err != nil {
		return 0, fmt.Errorf("list idle sessions: %w", err)
	}

	expired := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		ok, err := e.expireOne(ctx, candidate.ThreadKey, candidate.Key, now)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (e *ConversationEngine) expireOne(ctx context.Context, threadKey, key string, now time.Time) (bool, error) {
	unlock := e.locks.Lock(threadKey)
	defer unlock()

	sess, err := e.sessions.Get(ctx, key)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load session %s: %w", key, err)
	}
	if sess.Status.IsTerminal() || !sess.IdleSince(now, e.policy.IdleTimeout) {
		return false, nil
	}
	if err := e.expire(ctx, sess); err != nil {
		return false, err
	}
	return true, nil
}

func (e *ConversationEngine) expire(ctx context.Context, sess *domain.ThreadSession) error {
	e.terminate(sess, domain.StatusExpired, domain.ResolutionIdleTimeout)
	if err := e.sessions.Save(ctx, sess); err != nil {
		return domain.WrapError(domain.ErrTemporary, "save expired session", err)
	}
	return nil
}

func (e *ConversationEngine) expiredDuringCall(sess *domain.ThreadSession) bool {
	return sess.IdleSince(e.now(), e.policy.IdleTimeout)
}

// restartAfterExpiry discards the in-flight result, expires the session and
// opens a fresh one for the same message.
func (e *ConversationEngine) restartAfterExpiry(ctx context.Context, sess *domain.ThreadSession) (domain.OutboundAction, error) {
	e.logger.Warn("session_expired_in_flight", "session_key", sess.Key, "status", sess.Status)
	lastText := sess.OriginalQuestion
	if n := len(sess.Turns); n > 0 {
		lastText = sess.Turns[n-1].Text
	}
	if err := e.expire(ctx, sess); err != nil {
		return e.failTemporary(sess, sess.ThreadKey, err)
	}
	return e.startSession(ctx, domain.InboundMessage{
		ThreadKey: sess.ThreadKey,
		MessageTS: e.newID(),
		Text:      lastText,
	}, e.now(), false)
}

// inconsistent closes a session whose invariants no longer hold.
func (e *ConversationEngine) inconsistent(ctx context.Context, sess *domain.ThreadSession, cause error) (domain.OutboundAction, error) {
	e.logger.Error("session_inconsistent", "session_key", sess.Key, "status", sess.Status, "round", sess.Round, "error", cause)
	e.terminate(sess, domain.StatusAbandoned, domain.ResolutionInconsistency)
	if err := e.save(ctx, sess); err != nil {
		return e.failTemporary(sess, sess.ThreadKey, err)
	}
	return reportError(sess, sess.ThreadKey, domain.ErrorKindInternalInconsistency, ""), nil
}

func (e *ConversationEngine) failTemporary(sess *domain.ThreadSession, threadKey string, err error) (domain.OutboundAction, error) {
	if !domain.IsKind(err, domain.ErrTemporary) {
		err = domain.WrapError(domain.ErrTemporary, "session store", err)
	}
	return reportError(sess, threadKey, domain.ErrorKindTemporary, ""), err
}

func (e *ConversationEngine) transition(sess *domain.ThreadSession, next domain.SessionStatus) error {
	from := sess.Status
	if err := sess.Transition(next); err != nil {
		return err
	}
	if from != next {
		e.observer.RecordTransition(from, next)
		e.logger.Debug("session_transition", "session_key", sess.Key, "from", from, "to", next, "round", sess.Round)
	}
	return nil
}

func (e *ConversationEngine) terminate(sess *domain.ThreadSession, status domain.SessionStatus, resolution domain.Resolution) {
	from := sess.Status
	if from.IsTerminal() {
		return
	}
	sess.Terminate(status, resolution)
	e.observer.RecordTransition(from, status)
	e.logger.Info("session_transition", "session_key", sess.Key, "from", from, "to", status, "resolution", resolution)
}

func (e *ConversationEngine) save(ctx context.Context, sess *domain.ThreadSession) error {
	if err := e.sessions.Save(ctx, sess); err != nil {
		return domain.WrapError(domain.ErrTemporary, "save session", err)
	}
	return nil
}

func (e *ConversationEngine) appendTurn(sess *domain.ThreadSession, text string, at time.Time) {
	sess.Turns = append(sess.Turns, domain.ClarificationTurn{
		ID:   e.newID(),
		Text: text,
		At:   at,
	})
}

func (e *ConversationEngine) sessionKey(msg domain.InboundMessage) string {
	ts := strings.TrimSpace(msg.MessageTS)
	if ts == "" {
		ts = e.newID()
	}
	return msg.ThreadKey + "#" + ts
}

func (e *ConversationEngine) finish(action domain.OutboundAction) domain.OutboundAction {
	e.observer.RecordAction(action.Kind, action.ErrorKind)
	return action
}

func askDomainSelection(sess *domain.ThreadSession, domains []domain.LegalDomain) domain.OutboundAction {
	return domain.OutboundAction{
		Kind:       domain.ActionAskDomainSelection,
		SessionKey: sess.Key,
		ThreadKey:  sess.ThreadKey,
		Domains:    domains,
	}
}

func reportError(sess *domain.ThreadSession, threadKey string, kind domain.ErrorKind, message string) domain.OutboundAction {
	action := domain.OutboundAction{
		Kind:      domain.ActionReportError,
		ThreadKey: threadKey,
		ErrorKind: kind,
		Message:   message,
	}
	if sess != nil {
		action.SessionKey = sess.Key
	}
	return action
}

func buildSourceRefs(catalog *domain.Catalog, passages []domain.ScoredChunk) []domain.SourceRef {
	out := make([]domain.SourceRef, 0, len(passages))
	for i, p := range passages {
		out = append(out, domain.SourceRef{
			Index:   i + 1,
			Source:  p.Chunk.Source,
			Label:   catalog.SourceLabel(p.Chunk.Source),
			ChunkID: p.Chunk.ID,
			Score:   p.Fused,
		})
	}
	return out
}

func matchDomain(catalog *domain.Catalog, text string) (domain.LegalDomain, bool) {
	for _, d := range catalog.Domains() {
		if strings.EqualFold(text, d.ID) || text == d.Label {
			return d, true
		}
	}
	return domain.LegalDomain{}, false
}

func turnTexts(turns []domain.ClarificationTurn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Text)
	}
	return out
}

func joinSessionContext(sess *domain.ThreadSession) string {
	return strings.Join(sess.Context(), "\n")
}
