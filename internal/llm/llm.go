package llm

import (
	"context"
	"errors"
)

// ErrUnavailable signals that no usable model backend is reachable.
// Callers that can fall back to deterministic behavior should treat
// any error from Complete as equivalent to this one.
var ErrUnavailable = errors.New("llm: provider unavailable")

// Request describes a single completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider is a minimal chat-completion backend. Implementations must be
// safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
