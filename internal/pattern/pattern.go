// Package pattern memoizes pipelines that worked. A pattern is an
// append-only record of a successful run's query signature and steps;
// future queries with similar signatures get the proven pipeline offered
// as a planning hint instead of starting from scratch.
package pattern

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/dualmind/internal/planner"
)

// Pattern is one memoized successful run.
type Pattern struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Query     string         `json:"query"`
	Features  Features       `json:"features"`
	Steps     []planner.Step `json:"steps"`
	Reasoning string         `json:"reasoning"`
	ToolsUsed []string       `json:"tools_used"`
	Score     int            `json:"score"`
}

// Match is a stored pattern with its similarity to the probe query.
type Match struct {
	Pattern
	Similarity float64 `json:"similarity"`
}

// Store is an append-only pattern archive. Implementations never update
// or delete stored patterns.
type Store interface {
	Save(ctx context.Context, p Pattern) error
	// FindSimilar returns patterns whose similarity to features meets
	// threshold, best first, at most limit.
	FindSimilar(ctx context.Context, features Features, threshold float64, limit int) ([]Match, error)
	All(ctx context.Context) ([]Pattern, error)
}

// Hints converts matches into planner hints.
func Hints(matches []Match) []planner.Hint {
	out := make([]planner.Hint, len(matches))
	for i, m := range matches {
		out[i] = planner.Hint{
			Query:      m.Query,
			Steps:      m.Steps,
			Reasoning:  m.Reasoning,
			Score:      m.Score,
			Similarity: m.Similarity,
		}
	}
	return out
}

// rank sorts and caps matches in place, best first.
func rank(matches []Match, limit int) []Match {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Similarity > matches[j-1].Similarity; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
