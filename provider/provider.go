// Package provider selects the LLM backend from configuration.
package provider

import (
	"fmt"

	"github.com/mohammad-safakhou/dualmind/config"
	"github.com/mohammad-safakhou/dualmind/internal/llm"
	openai_provider "github.com/mohammad-safakhou/dualmind/provider/openai"
)

// New returns the configured llm.Provider, or nil when no backend is
// usable. A nil provider is valid: the planner and critic run on their
// deterministic fallbacks.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		client := openai_provider.New(cfg)
		if client == nil {
			return nil, nil
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
