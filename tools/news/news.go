// Package news implements the news_fetcher tool against NewsAPI.
package news

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

// Article is one NewsAPI item.
type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Tool fetches recent coverage for a query.
type Tool struct {
	apiKey     string
	endpoint   string
	maxResults int
	httpClient *http.Client
}

// New creates the tool. Returns an error without an API key.
func New(cfg config.NewsConfig) (*Tool, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("news: api key not configured")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://newsapi.org/v2/everything"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	max := cfg.MaxResults
	if max <= 0 {
		max = 10
	}
	return &Tool{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		maxResults: max,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Run implements registry.Tool.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	params := url.Values{}
	params.Set("q", input)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", t.maxResults))
	params.Set("apiKey", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}

	var raw struct {
		Status   string    `json:"status"`
		Articles []Article `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode news response: %w", err)
	}
	if raw.Status != "ok" {
		return "", fmt.Errorf("newsapi status %q", raw.Status)
	}
	if len(raw.Articles) == 0 {
		return "", fmt.Errorf("no news found for %q", input)
	}

	var b strings.Builder
	for i, a := range raw.Articles {
		if i >= t.maxResults {
			break
		}
		fmt.Fprintf(&b, "%s (%s, %s)\n%s\n%s\n\n",
			a.Title, a.Source.Name, a.PublishedAt.Format("2006-01-02"), a.Description, a.URL)
	}
	return strings.TrimSpace(b.String()), nil
}
