// Package store is the Postgres persistence layer: completed run
// records for the API and CLI, and user accounts for server auth.
// Pattern persistence lives with the pattern package; this store owns
// everything else.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// Store wraps a Postgres connection.
type Store struct {
	DB *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Session is one completed (or rejected) query run.
type Session struct {
	ID                 string          `json:"id"`
	Query              string          `json:"query"`
	Status             string          `json:"status"`
	FinalAnswer        string          `json:"final_answer"`
	Score              int             `json:"score"`
	Approved           bool            `json:"approved"`
	Iterations         int             `json:"iterations"`
	SelfCorrectionUsed bool            `json:"self_correction_used"`
	PatternMatched     bool            `json:"pattern_matched"`
	ElapsedMS          int64           `json:"elapsed_ms"`
	Output             json.RawMessage `json:"output"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SaveSession inserts a run record.
func (s *Store) SaveSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, query, status, final_answer, score, approved,
			iterations, self_correction_used, pattern_matched, elapsed_ms, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sess.ID, sess.CreatedAt, sess.Query, sess.Status, sess.FinalAnswer, sess.Score, sess.Approved,
		sess.Iterations, sess.SelfCorrectionUsed, sess.PatternMatched, sess.ElapsedMS, sess.Output)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads one run record by id.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, created_at, query, status, final_answer, score, approved,
			iterations, self_correction_used, pattern_matched, elapsed_ms, output
		FROM sessions WHERE id = $1`, id)
	var sess Session
	err := row.Scan(&sess.ID, &sess.CreatedAt, &sess.Query, &sess.Status, &sess.FinalAnswer,
		&sess.Score, &sess.Approved, &sess.Iterations, &sess.SelfCorrectionUsed,
		&sess.PatternMatched, &sess.ElapsedMS, &sess.Output)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recent runs, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, created_at, query, status, final_answer, score, approved,
			iterations, self_correction_used, pattern_matched, elapsed_ms, output
		FROM sessions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.Query, &sess.Status, &sess.FinalAnswer,
			&sess.Score, &sess.Approved, &sess.Iterations, &sess.SelfCorrectionUsed,
			&sess.PatternMatched, &sess.ElapsedMS, &sess.Output); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// User is a server account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts a user with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, created_at, email, password_hash) VALUES ($1, $2, $3, $4)`,
		u.ID, u.CreatedAt, u.Email, u.PasswordHash)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail loads a user for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, created_at, email, password_hash FROM users WHERE email = $1`, email)
	var u User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
