// Package wikipedia implements the wikipedia_search tool against the
// MediaWiki API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/config"
)

// Tool searches Wikipedia and returns the intro extract of the best hit.
type Tool struct {
	endpoint   string
	httpClient *http.Client
}

// New creates the tool from config.
func New(cfg config.WikipediaConfig) *Tool {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://en.wikipedia.org/w/api.php"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tool{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Run implements registry.Tool.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", input)
	params.Set("gsrlimit", "1")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "dualmind/1.0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var raw struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode wikipedia response: %w", err)
	}
	for _, page := range raw.Query.Pages {
		extract := strings.TrimSpace(page.Extract)
		if extract == "" {
			continue
		}
		return fmt.Sprintf("%s\n\n%s", page.Title, extract), nil
	}
	return "", fmt.Errorf("no wikipedia article found for %q", input)
}
