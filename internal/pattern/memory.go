package pattern

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps patterns in process memory. It is the default
// backend and the one tests use.
type MemoryStore struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, p Pattern) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, p)
	return nil
}

// FindSimilar implements Store.
func (s *MemoryStore) FindSimilar(_ context.Context, features Features, threshold float64, limit int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []Match
	for _, p := range s.patterns {
		if sim := Similarity(features, p.Features); sim >= threshold {
			matches = append(matches, Match{Pattern: p, Similarity: sim})
		}
	}
	return rank(matches, limit), nil
}

// All implements Store.
func (s *MemoryStore) All(_ context.Context) ([]Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out, nil
}
