package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const selectSessions = `
SELECT session_key, thread_key, domain, original_question, turns, pending_questions, round,
	status, resolution, resolved_question, best_effort, created_at, last_activity_at
FROM thread_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepository) Active(ctx context.Context, threadKey string) (*domain.ThreadSession, error) {
	row := r.db.QueryRowContext(ctx, selectSessions+`
WHERE thread_key = $1
ORDER BY created_at DESC, session_key DESC
LIMIT 1
`, threadKey)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "active session", fmt.Errorf("thread %s", threadKey))
		}
		return nil, err
	}
	return sess, nil
}

func (r *SessionRepository) Get(ctx context.Context, key string) (*domain.ThreadSession, error) {
	row := r.db.QueryRowContext(ctx, selectSessions+`
WHERE session_key = $1
`, key)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("key %s", key))
		}
		return nil, err
	}
	return sess, nil
}

// Save upserts the full session snapshot.
func (r *SessionRepository) Save(ctx context.Context, s *domain.ThreadSession) error {
	turns := s.Turns
	if turns == nil {
		turns = []domain.ClarificationTurn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	pendingJSON, err := json.Marshal(nonNilStrings(s.PendingQuestions))
	if err != nil {
		return fmt.Errorf("marshal pending questions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO thread_sessions (
	session_key, thread_key, domain, original_question, turns, pending_questions, round,
	status, resolution, resolved_question, best_effort, created_at, last_activity_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (session_key) DO UPDATE SET
	domain = EXCLUDED.domain,
	turns = EXCLUDED.turns,
	pending_questions = EXCLUDED.pending_questions,
	round = EXCLUDED.round,
	status = EXCLUDED.status,
	resolution = EXCLUDED.resolution,
	resolved_question = EXCLUDED.resolved_question,
	best_effort = EXCLUDED.best_effort,
	last_activity_at = EXCLUDED.last_activity_at
`,
		s.Key, s.ThreadKey, s.Domain, s.OriginalQuestion, turnsJSON, pendingJSON, s.Round,
		string(s.Status), string(s.Resolution), s.ResolvedQuestion, s.BestEffort, s.CreatedAt.UTC(), s.LastActivityAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ListIdle returns non-terminal sessions whose last activity is at or
// before cutoff, oldest first.
func (r *SessionRepository) ListIdle(ctx context.Context, cutoff time.Time) ([]domain.ThreadSession, error) {
	rows, err := r.db.QueryContext(ctx, selectSessions+`
WHERE status NOT IN ($1, $2, $3) AND last_activity_at <= $4
ORDER BY last_activity_at ASC
`, string(domain.StatusAnswered), string(domain.StatusExpired), string(domain.StatusAbandoned), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ThreadSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}
	return out, nil
}

func scanSession(row rowScanner) (*domain.ThreadSession, error) {
	var (
		s          domain.ThreadSession
		turnsRaw   []byte
		pendingRaw []byte
		status     string
		resolution string
	)
	err := row.Scan(
		&s.Key, &s.ThreadKey, &s.Domain, &s.OriginalQuestion, &turnsRaw, &pendingRaw, &s.Round,
		&status, &resolution, &s.ResolvedQuestion, &s.BestEffort, &s.CreatedAt, &s.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(turnsRaw, &s.Turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns of %s: %w", s.Key, err)
	}
	if err := json.Unmarshal(pendingRaw, &s.PendingQuestions); err != nil {
		return nil, fmt.Errorf("unmarshal pending questions of %s: %w", s.Key, err)
	}
	if len(s.PendingQuestions) == 0 {
		s.PendingQuestions = nil
	}
	s.Status = domain.SessionStatus(status)
	s.Resolution = domain.Resolution(resolution)
	return &s, nil
}
