// Package arxiv implements the arxiv_summarizer tool against the arXiv
// Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/config"
)

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	ID        string   `xml:"id"`
	Authors   []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
}

// Tool searches arXiv and returns abstracts of the top papers.
type Tool struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
}

// New creates the tool from config.
func New(cfg config.ArxivConfig) *Tool {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://export.arxiv.org/api/query"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	max := cfg.MaxResults
	if max <= 0 {
		max = 5
	}
	return &Tool{
		endpoint:   endpoint,
		maxResults: max,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Run implements registry.Tool.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+input)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", t.maxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch arxiv: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return "", fmt.Errorf("decode arxiv feed: %w", err)
	}
	if len(f.Entries) == 0 {
		return "", fmt.Errorf("no arxiv papers found for %q", input)
	}

	var b strings.Builder
	for i, e := range f.Entries {
		if i >= t.maxResults {
			break
		}
		names := make([]string, len(e.Authors))
		for j, a := range e.Authors {
			names[j] = a.Name
		}
		fmt.Fprintf(&b, "%s (%s)\nAuthors: %s\n%s\n%s\n\n",
			collapse(e.Title), e.Published, strings.Join(names, ", "), collapse(e.Summary), e.ID)
	}
	return strings.TrimSpace(b.String()), nil
}

// collapse flattens the newline-wrapped text arXiv returns.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
