package pattern

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists patterns in the patterns table. Similarity is
// computed in process; the table is an append-only archive small enough
// to scan.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, p Pattern) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO patterns (id, created_at, query, features, steps, reasoning, tools_used, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Timestamp, p.Query, features, steps, p.Reasoning, pq.Array(p.ToolsUsed), p.Score)
	if err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	return nil
}

// FindSimilar implements Store. Cross-type rows can still clear the
// threshold through keyword overlap, so every row is scored.
func (s *PostgresStore) FindSimilar(ctx context.Context, features Features, threshold float64, limit int) ([]Match, error) {
	patterns, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var matches []Match
	for _, p := range patterns {
		if sim := Similarity(features, p.Features); sim >= threshold {
			matches = append(matches, Match{Pattern: p, Similarity: sim})
		}
	}
	return rank(matches, limit), nil
}

// All implements Store.
func (s *PostgresStore) All(ctx context.Context) ([]Pattern, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, created_at, query, features, steps, reasoning, tools_used, score
		FROM patterns ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("select patterns: %w", err)
	}
	defer rows.Close()

	var out []Pattern
	for rows.Next() {
		var (
			p        Pattern
			features []byte
			steps    []byte
		)
		if err := rows.Scan(&p.ID, &p.Timestamp, &p.Query, &features, &steps, &p.Reasoning, pq.Array(&p.ToolsUsed), &p.Score); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		if err := json.Unmarshal(steps, &p.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
