package webfetch

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/dualmind/config"
)

func TestRunRejectsBadInput(t *testing.T) {
	tool := New(config.WebFetchConfig{})
	for _, input := range []string{
		"",
		"not a url",
		"ftp://example.com/file",
		"/relative/path",
		"example.com/missing-scheme",
	} {
		if _, err := tool.Run(context.Background(), input); err == nil {
			t.Errorf("input %q: expected error", input)
		}
	}
}
