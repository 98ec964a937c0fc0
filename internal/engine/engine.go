// Package engine executes approved plans. Execution is deterministic:
// steps run in order, the synthesis step sees the accumulated context of
// everything before it, and failures trigger bounded self-correction
// passes that substitute fallbacks or drop non-critical steps before
// re-running the whole pipeline.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
)

// ContextDelimiter separates a step's own input from the context
// accumulated by earlier steps. Tools that understand context split on
// it; tools that don't still see their input first.
const ContextDelimiter = "|||CONTEXT:"

// SplitContext splits an augmented input into the original input and
// the accumulated context. Context is empty when no delimiter is present.
func SplitContext(input string) (string, string) {
	if i := strings.Index(input, ContextDelimiter); i >= 0 {
		return input[:i], input[i+len(ContextDelimiter):]
	}
	return input, ""
}

// StepStatus is the outcome of one executed step.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
)

// Record captures one step execution from the final pass.
type Record struct {
	Step       int           `json:"step"`
	Tool       string        `json:"tool"`
	Purpose    string        `json:"purpose,omitempty"`
	Input      string        `json:"input"`
	Status     StepStatus    `json:"status"`
	Output     string        `json:"output,omitempty"`
	Err        string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	RetryCount int           `json:"retry_count"`
	Cached     bool          `json:"cached,omitempty"`
}

// Cache stores tool outputs keyed by tool+input, so correction passes
// do not re-fetch what already succeeded.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Engine runs plans against a tool registry.
type Engine struct {
	reg        *registry.Registry
	maxRetries int
	cache      Cache
	logger     *log.Logger
}

// New creates an engine. cache may be nil.
func New(reg *registry.Registry, maxRetries int, cache Cache) *Engine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		reg:        reg,
		maxRetries: maxRetries,
		cache:      cache,
		logger:     log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
	}
}

// Execute runs plan to completion. On step failure it builds a corrected
// plan and re-executes from the top, up to maxRetries correction passes,
// so at most maxRetries+1 passes run. The returned records describe the
// final pass only; the bool reports whether any correction happened.
func (e *Engine) Execute(ctx context.Context, plan *planner.Plan) ([]Record, bool) {
	current := plan.Clone()
	corrected := false

	for pass := 0; ; pass++ {
		records := e.runPass(ctx, current, pass)
		failed := failedSteps(records)
		if len(failed) == 0 || pass >= e.maxRetries {
			if len(failed) > 0 {
				e.logger.Printf("giving up after pass %d with %d failed step(s)", pass, len(failed))
			}
			return records, corrected
		}

		current = e.correct(current, failed)
		corrected = true
		e.logger.Printf("pass %d had %d failure(s), re-executing corrected plan", pass, len(failed))
	}
}

// runPass executes every step of plan once, in order.
func (e *Engine) runPass(ctx context.Context, plan *planner.Plan, pass int) []Record {
	records := make([]Record, 0, len(plan.Steps))

	for i, step := range plan.Steps {
		input := step.Input
		if step.Tool == registry.SynthesisTool {
			if parts := contextParts(records); len(parts) > 0 {
				input = input + ContextDelimiter + strings.Join(parts, "\n\n")
			}
		}

		rec := Record{
			Step:       i + 1,
			Tool:       step.Tool,
			Purpose:    step.Purpose,
			Input:      input,
			RetryCount: pass,
		}

		start := time.Now()
		output, cached, err := e.invoke(ctx, step.Tool, input)
		rec.Elapsed = time.Since(start)
		rec.Cached = cached

		if err != nil {
			rec.Status = StatusFailed
			rec.Err = err.Error()
			e.logger.Printf("step %d (%s) failed: %v", rec.Step, rec.Tool, err)
		} else {
			rec.Status = StatusSuccess
			rec.Output = output
		}
		records = append(records, rec)
	}
	return records
}

// invoke runs a tool, consulting the cache for non-synthesis steps.
// Synthesis is never cached: its input embeds the run's full context.
func (e *Engine) invoke(ctx context.Context, tool, input string) (string, bool, error) {
	cacheable := e.cache != nil && tool != registry.SynthesisTool
	key := cacheKey(tool, input)
	if cacheable {
		if val, ok := e.cache.Get(ctx, key); ok {
			return val, true, nil
		}
	}
	output, err := e.reg.Invoke(ctx, tool, input)
	if err != nil {
		return "", false, err
	}
	if cacheable {
		e.cache.Set(ctx, key, output)
	}
	return output, false, nil
}

// correct rewrites plan around the failed steps: a failed step whose
// tool has a fallback gets the fallback substituted, a non-critical one
// without a fallback is dropped, and a critical one without a fallback
// stays for a plain retry. Steps that succeeded are never touched, even
// when they share a tool with a failed step. The synthesis step always
// survives, last.
func (e *Engine) correct(plan *planner.Plan, failed []Record) *planner.Plan {
	failedIdx := make(map[int]bool, len(failed))
	for _, r := range failed {
		failedIdx[r.Step] = true
	}

	next := plan.Clone()
	steps := next.Steps[:0]
	for i, step := range next.Steps {
		if !failedIdx[i+1] {
			steps = append(steps, step)
			continue
		}
		if fb := e.reg.Fallback(step.Tool); fb != "" {
			e.logger.Printf("substituting %s for failed step %d (%s)", fb, i+1, step.Tool)
			step.Tool = fb
			steps = append(steps, step)
			continue
		}
		if !e.reg.Critical(step.Tool) {
			e.logger.Printf("dropping non-critical failed step %d (%s)", i+1, step.Tool)
			continue
		}
		// critical, no fallback: keep it and hope the retry lands
		steps = append(steps, step)
	}
	next.Steps = dedupeConsecutive(steps)
	if n := len(next.Steps); n == 0 || next.Steps[n-1].Tool != registry.SynthesisTool {
		next.Steps = append(next.Steps, planner.Step{
			Tool:    registry.SynthesisTool,
			Purpose: "synthesize final answer",
			Input:   next.Query,
		})
	}
	return next
}

// contextParts collects successful outputs long enough to carry signal.
func contextParts(records []Record) []string {
	var parts []string
	for _, r := range records {
		if r.Status == StatusSuccess && len(r.Output) > 10 {
			parts = append(parts, "["+r.Tool+"]: "+r.Output)
		}
	}
	return parts
}

func failedSteps(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// dedupeConsecutive collapses adjacent steps that became identical after
// fallback substitution.
func dedupeConsecutive(steps []planner.Step) []planner.Step {
	out := steps[:0]
	for _, s := range steps {
		if n := len(out); n > 0 && out[n-1].Tool == s.Tool && out[n-1].Input == s.Input {
			continue
		}
		out = append(out, s)
	}
	return out
}

func cacheKey(tool, input string) string {
	sum := sha256.Sum256([]byte(tool + "|" + input))
	return "dualmind:tool:" + hex.EncodeToString(sum[:])
}
