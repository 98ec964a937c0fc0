package pattern

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve"
)

// SearchHit is one full-text match against the archive.
type SearchHit struct {
	Pattern Pattern `json:"pattern"`
	Score   float64 `json:"score"`
}

// Index is a mem-only full-text index over a pattern archive, built on
// demand for ad-hoc queries. Feature similarity answers "have we solved
// this shape of query"; the index answers "which stored runs mention X".
type Index struct {
	idx  bleve.Index
	byID map[string]Pattern
}

// BuildIndex loads every pattern from store into a fresh index.
func BuildIndex(ctx context.Context, store Store) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	patterns, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Pattern, len(patterns))
	for _, p := range patterns {
		doc := map[string]any{
			"query":     p.Query,
			"reasoning": p.Reasoning,
			"tools":     p.ToolsUsed,
			"type":      p.Features.Type,
		}
		if err := idx.Index(p.ID, doc); err != nil {
			return nil, fmt.Errorf("index pattern %s: %w", p.ID, err)
		}
		byID[p.ID] = p
	}
	return &Index{idx: idx, byID: byID}, nil
}

// Search runs a query-string search and resolves hits back to patterns.
func (i *Index) Search(q string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	var out []SearchHit
	for _, hit := range res.Hits {
		if p, ok := i.byID[hit.ID]; ok {
			out = append(out, SearchHit{Pattern: p, Score: hit.Score})
		}
	}
	return out, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}
