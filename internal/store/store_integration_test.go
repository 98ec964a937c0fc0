package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"
	"github.com/mohammad-safakhou/dualmind/internal/pattern"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/store"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("dualmind"),
		tcPostgres.WithUsername("dualmind"),
		tcPostgres.WithPassword("dualmind"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() {
		_ = pgC.Terminate(ctx)
	}()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://dualmind:dualmind@%s:%s/dualmind?sslmode=disable", host, port.Port())

	migrations, err := filepath.Abs("../../migrations")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate("file://"+migrations, dsn, "up", 0); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s, err := store.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	sess := store.Session{
		Query:       "what is machine learning?",
		Status:      "completed",
		FinalAnswer: "an answer",
		Score:       88,
		Approved:    true,
		Iterations:  1,
		ElapsedMS:   1500,
		Output:      json.RawMessage(`{"plan_history":[]}`),
	}
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	listed, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(listed) != 1 || listed[0].Query != sess.Query {
		t.Fatalf("listed = %+v", listed)
	}
	got, err := s.GetSession(ctx, listed[0].ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Score != 88 || !got.Approved {
		t.Errorf("session = %+v", got)
	}

	ps := pattern.NewPostgresStore(s.DB)
	p := pattern.Pattern{
		Query:    "what is machine learning?",
		Features: pattern.Extract("what is machine learning?"),
		Steps: []planner.Step{
			{Tool: "wikipedia_search", Input: "machine learning"},
			{Tool: "qa_engine", Input: "what is machine learning?"},
		},
		Reasoning: "background plus synthesis",
		ToolsUsed: []string{"wikipedia_search", "qa_engine"},
		Score:     88,
	}
	if err := ps.Save(ctx, p); err != nil {
		t.Fatalf("save pattern: %v", err)
	}
	matches, err := ps.FindSimilar(ctx, pattern.Extract("what is deep learning?"), 0.7, 5)
	if err != nil {
		t.Fatalf("find similar: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].Steps[0].Tool != "wikipedia_search" {
		t.Errorf("steps lost fidelity: %+v", matches[0].Steps)
	}

	if _, err := s.CreateUser(ctx, "dev@example.com", "$2a$10$hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err := s.GetUserByEmail(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Email != "dev@example.com" {
		t.Errorf("user = %+v", u)
	}
}
