// Package report implements the document_writer tool: it renders the
// accumulated run context into a markdown report on disk.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/dualmind/config"
	"github.com/mohammad-safakhou/dualmind/internal/engine"
)

// Tool writes markdown reports.
type Tool struct {
	outputDir string
}

// New creates the tool from config.
func New(cfg config.ReportConfig) *Tool {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "./reports"
	}
	return &Tool{outputDir: dir}
}

// Run implements registry.Tool. When the input carries run context, the
// context sections become the report body.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	subject, runContext := engine.SplitContext(input)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(subject))
	fmt.Fprintf(&b, "_Generated %s_\n\n", time.Now().Format(time.RFC1123))
	if runContext != "" {
		for _, section := range strings.Split(runContext, "\n\n") {
			b.WriteString(section)
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString("No source material was collected for this report.\n")
	}

	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("report-%s-%s.md", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(t.outputDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return fmt.Sprintf("report written to %s (%d bytes)", path, b.Len()), nil
}
