package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestSaveSession(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "what is x?", "completed", "answer",
			85, true, 1, false, false, int64(1200), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveSession(context.Background(), Session{
		Query:       "what is x?",
		Status:      "completed",
		FinalAnswer: "answer",
		Score:       85,
		Approved:    true,
		Iterations:  1,
		ElapsedMS:   1200,
		Output:      json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, created_at, query").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "created_at", "query", "status", "final_answer", "score", "approved",
		"iterations", "self_correction_used", "pattern_matched", "elapsed_ms", "output"}
	rows := sqlmock.NewRows(cols).
		AddRow("a", time.Now(), "q1", "completed", "ans1", 90, true, 1, false, true, int64(900), []byte("{}")).
		AddRow("b", time.Now(), "q2", "rejected", "", 40, false, 3, false, false, int64(300), []byte("{}"))
	mock.ExpectQuery("SELECT id, created_at, query").WithArgs(10).WillReturnRows(rows)

	sessions, err := s.ListSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[1].Status != "rejected" || sessions[1].Score != 40 {
		t.Errorf("second session = %+v", sessions[1])
	}
}

func TestGetUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "created_at", "email", "password_hash"}).
		AddRow("u1", time.Now(), "dev@example.com", "$2a$10$hash")
	mock.ExpectQuery("SELECT id, created_at, email, password_hash FROM users").
		WithArgs("dev@example.com").
		WillReturnRows(rows)

	u, err := s.GetUserByEmail(context.Background(), "dev@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != "u1" || u.PasswordHash == "" {
		t.Errorf("user = %+v", u)
	}
}
