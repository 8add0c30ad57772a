package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

func newSessionRepoWithMock(t *testing.T) (*SessionRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewSessionRepository(db), mock, func() { _ = db.Close() }
}

var sessionColumns = []string{
	"session_key", "thread_key", "domain", "original_question", "turns", "pending_questions", "round",
	"status", "resolution", "resolved_question", "best_effort", "created_at", "last_activity_at",
}

func TestActiveReturnsSessionNotFound(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM thread_sessions\\s+WHERE thread_key").
		WithArgs("C1:100").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Active(context.Background(), "C1:100")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDecodesSnapshot(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sessionColumns).AddRow(
		"C1:100#100", "C1:100", "keihyouhou", "ポイントは景品?",
		[]byte(`[{"id":"t-1","text":"キャンペーンです","at":"2025-04-01T09:01:00Z"}]`),
		[]byte(`["対象は誰ですか?"]`), 1,
		string(domain.StatusAwaitingClarification), "", "", false, now, now.Add(time.Minute),
	)
	mock.ExpectQuery("FROM thread_sessions\\s+WHERE session_key").
		WithArgs("C1:100#100").
		WillReturnRows(rows)

	sess, err := repo.Get(context.Background(), "C1:100#100")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Status != domain.StatusAwaitingClarification || sess.Round != 1 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if len(sess.Turns) != 1 || sess.Turns[0].Text != "キャンペーンです" {
		t.Fatalf("unexpected turns %+v", sess.Turns)
	}
	if len(sess.PendingQuestions) != 1 {
		t.Fatalf("unexpected pending questions %+v", sess.PendingQuestions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveUpsertsSnapshot(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("(?s)INSERT INTO thread_sessions.*ON CONFLICT \\(session_key\\) DO UPDATE").
		WithArgs(
			"k", "C1:100", "", "q", []byte(`[]`), []byte(`[]`), 0,
			string(domain.StatusAwaitingDomainSelection), "", "", false, now, now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), &domain.ThreadSession{
		Key:              "k",
		ThreadKey:        "C1:100",
		OriginalQuestion: "q",
		Status:           domain.StatusAwaitingDomainSelection,
		CreatedAt:        now,
		LastActivityAt:   now,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListIdleExcludesTerminalStatuses(t *testing.T) {
	repo, mock, done := newSessionRepoWithMock(t)
	defer done()

	cutoff := time.Date(2025, 4, 1, 8, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows(sessionColumns).AddRow(
		"k", "C1:100", "", "q", []byte(`[]`), []byte(`[]`), 0,
		string(domain.StatusAwaitingDomainSelection), "", "", false, cutoff, cutoff,
	)
	mock.ExpectQuery("WHERE status NOT IN").
		WithArgs(string(domain.StatusAnswered), string(domain.StatusExpired), string(domain.StatusAbandoned), cutoff).
		WillReturnRows(rows)

	idle, err := repo.ListIdle(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ListIdle() error = %v", err)
	}
	if len(idle) != 1 || idle[0].PendingQuestions != nil {
		t.Fatalf("unexpected idle sessions %+v", idle)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
