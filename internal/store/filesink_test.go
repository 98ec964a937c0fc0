package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSinkSaveSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	sink := NewFileSink(dir)

	sess := Session{
		ID:          "run-1",
		Query:       "what is a qubit",
		Status:      "completed",
		FinalAnswer: "a two-state quantum system",
		Score:       85,
		Approved:    true,
		Iterations:  1,
		CreatedAt:   time.Now(),
	}
	if err := sink.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "run-1.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got Session
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Query != sess.Query || got.Score != 85 || !got.Approved {
		t.Errorf("got = %+v", got)
	}
}

func TestFileSinkRequiresID(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	if err := sink.SaveSession(context.Background(), Session{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
