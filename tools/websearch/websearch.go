// Package websearch implements the web_search tool over interchangeable
// search providers.
package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/config"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher is a search backend.
type Searcher interface {
	Discover(ctx context.Context, q string, k int) ([]Result, error)
}

// Tool adapts a Searcher to the registry.
type Tool struct {
	searcher   Searcher
	maxResults int
}

// New builds the tool from config. Returns an error when the configured
// provider has no API key: an unusable search tool must not register.
func New(cfg config.WebSearchConfig) (*Tool, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	max := cfg.MaxResults
	if max <= 0 {
		max = 5
	}
	var searcher Searcher
	switch cfg.Provider {
	case "", "serper":
		if cfg.SerperAPIKey == "" {
			return nil, fmt.Errorf("websearch: serper api key not configured")
		}
		searcher = &Serper{APIKey: cfg.SerperAPIKey, Timeout: timeout}
	case "brave":
		if cfg.BraveAPIKey == "" {
			return nil, fmt.Errorf("websearch: brave api key not configured")
		}
		searcher = &Brave{APIKey: cfg.BraveAPIKey, Timeout: timeout}
	default:
		return nil, fmt.Errorf("websearch: unknown provider %q", cfg.Provider)
	}
	return &Tool{searcher: searcher, maxResults: max}, nil
}

// NewWithSearcher wires a custom backend, used by tests.
func NewWithSearcher(s Searcher, maxResults int) *Tool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Tool{searcher: s, maxResults: maxResults}
}

// Run implements registry.Tool.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	results, err := t.searcher.Discover(ctx, input, t.maxResults)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("web search: no results for %q", input)
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimSpace(b.String()), nil
}
