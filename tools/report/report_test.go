package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/dualmind/config"
	"github.com/mohammad-safakhou/dualmind/internal/engine"
)

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	tool := New(config.ReportConfig{OutputDir: dir})

	input := "quantum computing overview" + engine.ContextDelimiter +
		"[wikipedia_search]: qubits are units of quantum information\n\n[arxiv_summarizer]: recent error correction advances"
	out, err := tool.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "report written to ") {
		t.Fatalf("output = %q", out)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one report file, got %d", len(entries))
	}
	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(body)
	if !strings.HasPrefix(text, "# quantum computing overview") {
		t.Errorf("missing title heading:\n%s", text)
	}
	if !strings.Contains(text, "qubits are units") || !strings.Contains(text, "error correction") {
		t.Errorf("context sections missing from report:\n%s", text)
	}
}

func TestRunWithoutContext(t *testing.T) {
	tool := New(config.ReportConfig{OutputDir: t.TempDir()})
	out, err := tool.Run(context.Background(), "empty subject")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "report written to ") {
		t.Errorf("output = %q", out)
	}
}

func TestRunCancelledContext(t *testing.T) {
	tool := New(config.ReportConfig{OutputDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tool.Run(ctx, "anything"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
