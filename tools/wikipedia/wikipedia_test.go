package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/dualmind/config"
)

func TestRunReturnsExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("gsrsearch"); got != "honeybees" {
			t.Errorf("gsrsearch = %q", got)
		}
		w.Write([]byte(`{"query":{"pages":{"123":{"title":"Honey bee","extract":"A honey bee is a eusocial flying insect."}}}}`))
	}))
	defer srv.Close()

	tool := New(config.WikipediaConfig{Endpoint: srv.URL})
	out, err := tool.Run(context.Background(), "honeybees")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "Honey bee") || !strings.Contains(out, "eusocial") {
		t.Errorf("output = %q", out)
	}
}

func TestRunNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{}}}`))
	}))
	defer srv.Close()

	tool := New(config.WikipediaConfig{Endpoint: srv.URL})
	if _, err := tool.Run(context.Background(), "zzzzzz"); err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestRunUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tool := New(config.WikipediaConfig{Endpoint: srv.URL})
	if _, err := tool.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 503")
	}
}
