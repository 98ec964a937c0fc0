package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink persists sessions as one JSON document per run, for setups
// without postgres.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing under dir. The directory is
// created on first save.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// SaveSession writes the session to <dir>/<id>.json.
func (f *FileSink) SaveSession(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.ID == "" {
		return fmt.Errorf("session id required")
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	path := filepath.Join(f.dir, sess.ID+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
