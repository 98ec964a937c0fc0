// Package registry tracks the tools the execution engine may invoke,
// plus the metadata the self-correction logic needs about each one:
// its purpose, its fallback, and whether a plan survives losing it.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SynthesisTool is the terminal step of every plan. It folds the
// accumulated context into a final answer and must always be registered.
const SynthesisTool = "qa_engine"

// Descriptor is the static card for a registered tool.
type Descriptor struct {
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	Fallback string `json:"fallback,omitempty"` // substitute tool on failure, empty if none
	Critical bool   `json:"critical"`           // plan cannot proceed without it
}

// Tool executes one pipeline step.
type Tool interface {
	Run(ctx context.Context, input string) (string, error)
}

// Entry pairs a descriptor with its implementation.
type Entry struct {
	Descriptor
	Impl Tool
}

// Registry is an immutable-after-construction tool table. It is safe
// for concurrent reads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New builds a registry from entries and verifies the invariants the
// rest of the system assumes: the synthesis tool exists, and every
// declared fallback names another registered tool.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("registry: entry with empty name")
		}
		if e.Impl == nil {
			return nil, fmt.Errorf("registry: tool %q has no implementation", e.Name)
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate tool %q", e.Name)
		}
		r.entries[e.Name] = e
	}
	if _, ok := r.entries[SynthesisTool]; !ok {
		return nil, fmt.Errorf("registry: synthesis tool %q not registered", SynthesisTool)
	}
	for _, e := range r.entries {
		if e.Fallback == "" {
			continue
		}
		if _, ok := r.entries[e.Fallback]; !ok {
			return nil, fmt.Errorf("registry: tool %q declares unknown fallback %q", e.Name, e.Fallback)
		}
		if e.Fallback == e.Name {
			return nil, fmt.Errorf("registry: tool %q is its own fallback", e.Name)
		}
	}
	return r, nil
}

// Has reports whether name is a registered tool.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Describe returns the descriptor for name.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.Descriptor, ok
}

// Fallback returns the declared substitute for name, or "" if none.
func (r *Registry) Fallback(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].Fallback
}

// Critical reports whether the plan cannot proceed without name.
// Unknown tools are not critical.
func (r *Registry) Critical(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].Critical
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all descriptors sorted by name, for prompt
// construction and API listings.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the named tool. A panicking tool is reported as an error
// rather than taking down the engine pass.
func (r *Registry) Invoke(ctx context.Context, name, input string) (output string, err error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("registry: unknown tool %q", name)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("registry: tool %q panicked: %v", name, rec)
		}
	}()
	return e.Impl.Run(ctx, input)
}

// Func adapts a plain function to the Tool interface.
type Func func(ctx context.Context, input string) (string, error)

// Run implements Tool.
func (f Func) Run(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}
