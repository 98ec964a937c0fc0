package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/dualmind/config"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Sparse  Attention
      in Transformers</title>
    <summary>We study sparse
      attention mechanisms.</summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Researcher</name></author>
    <author><name>B. Colleague</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00002v1</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
    <published>2024-01-02T00:00:00Z</published>
    <author><name>C. Author</name></author>
  </entry>
</feed>`

func newTestTool(endpoint string) *Tool {
	return New(config.ArxivConfig{Endpoint: endpoint, MaxResults: 5, Timeout: 5 * time.Second})
}

func TestRunFormatsEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:sparse attention" {
			t.Errorf("search_query = %q", got)
		}
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	out, err := newTestTool(srv.URL).Run(context.Background(), "sparse attention")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "Sparse Attention in Transformers") {
		t.Errorf("title not collapsed: %q", out)
	}
	if !strings.Contains(out, "A. Researcher, B. Colleague") {
		t.Errorf("authors missing: %q", out)
	}
	if !strings.Contains(out, "We study sparse attention mechanisms.") {
		t.Errorf("summary not collapsed: %q", out)
	}
	if !strings.Contains(out, "Second Paper") {
		t.Errorf("second entry missing: %q", out)
	}
}

func TestRunMaxResultsCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	tool := New(config.ArxivConfig{Endpoint: srv.URL, MaxResults: 1})
	out, err := tool.Run(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out, "Second Paper") {
		t.Errorf("second entry should be dropped: %q", out)
	}
}

func TestRunEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	if _, err := newTestTool(srv.URL).Run(context.Background(), "nonsense"); err == nil {
		t.Fatal("expected error for empty feed")
	}
}

func TestRunServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestTool(srv.URL).Run(context.Background(), "q"); err == nil {
		t.Fatal("expected error for bad status")
	}
}
