// Package planner generates and revises execution pipelines. It prefers
// model-generated plans but always has a deterministic answer: template
// plans when the model is unreachable, rule-based edits when a revision
// prompt yields nothing usable. Propose and Revise never fail.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/internal/llm"
	"github.com/mohammad-safakhou/dualmind/internal/recovery"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
)

// Planner turns queries into plans and critic feedback into revisions.
type Planner struct {
	provider llm.Provider
	reg      *registry.Registry
	maxSteps int
	logger   *log.Logger
}

// New creates a planner. provider may be nil, in which case every plan
// comes from the deterministic paths.
func New(provider llm.Provider, reg *registry.Registry, maxSteps int) *Planner {
	if maxSteps <= 0 {
		maxSteps = 5
	}
	return &Planner{
		provider: provider,
		reg:      reg,
		maxSteps: maxSteps,
		logger:   log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Propose builds an initial plan for query. Hints from the pattern store,
// if any, are offered to the model and seed the fallback path.
func (p *Planner) Propose(ctx context.Context, query string, hints []Hint) *Plan {
	if p.provider != nil {
		if plan, err := p.fromModel(ctx, proposePrompt(query, hints, p.reg.Descriptors())); err == nil {
			plan.Query = query
			plan.LLMGenerated = true
			p.normalize(plan)
			p.logger.Printf("model plan: %d steps for %q", len(plan.Steps), truncate(query, 60))
			return plan
		} else {
			p.logger.Printf("model plan failed (%v), falling back", err)
		}
	}

	// Best hint wins over a generic template: a pipeline that already
	// succeeded on a near-identical query beats a guess.
	if len(hints) > 0 {
		best := hints[0]
		for _, h := range hints[1:] {
			if h.Similarity > best.Similarity {
				best = h
			}
		}
		plan := &Plan{
			Query:       query,
			Reasoning:   fmt.Sprintf("reusing pipeline that scored %d on a similar query", best.Score),
			Steps:       rebindSteps(best.Steps, query),
			FinalOutput: "synthesized answer",
		}
		p.normalize(plan)
		if len(plan.Steps) > 0 {
			return plan
		}
	}

	plan := templateFor(query)
	p.normalize(plan)
	return plan
}

// Revise produces the next plan version from critic feedback. The model
// is asked first; if it produces nothing usable the feedback is applied
// mechanically to a copy of the prior plan.
func (p *Planner) Revise(ctx context.Context, query string, prior *Plan, fb Feedback) *Plan {
	if p.provider != nil {
		if plan, err := p.fromModel(ctx, revisePrompt(query, prior, fb, p.reg.Descriptors())); err == nil {
			plan.Query = query
			plan.LLMGenerated = true
			p.finishRevision(plan, prior, fb)
			p.logger.Printf("model revision %d: %d steps", plan.Revision, len(plan.Steps))
			return plan
		} else {
			p.logger.Printf("model revision failed (%v), applying rule-based edits", err)
		}
	}

	plan := p.applyFeedback(prior, fb)
	p.finishRevision(plan, prior, fb)
	return plan
}

func (p *Planner) finishRevision(plan, prior *Plan, fb Feedback) {
	plan.Revision = prior.Revision + 1
	score := fb.Score
	plan.PriorScore = &score
	p.normalize(plan)
}

// applyFeedback edits a copy of prior according to keywords in the
// critic's issues and suggestions.
func (p *Planner) applyFeedback(prior *Plan, fb Feedback) *Plan {
	plan := prior.Clone()
	plan.LLMGenerated = false
	notes := strings.ToLower(strings.Join(append(append([]string{}, fb.Issues...), fb.Suggestions...), " "))

	if strings.Contains(notes, "redundan") || strings.Contains(notes, "duplicate") {
		plan.Steps = dedupeSteps(plan.Steps)
	}
	if strings.Contains(notes, "relevan") || strings.Contains(notes, "off-topic") || strings.Contains(notes, "off topic") {
		if len(plan.Steps) == 0 || plan.Steps[0].Tool != "wikipedia_search" {
			grounding := Step{Tool: "wikipedia_search", Purpose: "ground the pipeline in background facts", Input: plan.Query}
			plan.Steps = append([]Step{grounding}, plan.Steps...)
		}
	}
	if strings.Contains(notes, "complet") || strings.Contains(notes, "comprehensive") || strings.Contains(notes, "more sources") {
		for _, tool := range []string{"arxiv_summarizer", "news_fetcher"} {
			if !hasTool(plan.Steps, tool) && p.reg.Has(tool) {
				plan.Steps = append(plan.Steps, Step{Tool: tool, Purpose: "broaden source coverage", Input: plan.Query})
			}
		}
	}
	if strings.Contains(notes, "too many") || strings.Contains(notes, "efficien") || strings.Contains(notes, "too long") {
		plan.Steps = trimToBudget(plan.Steps, p.maxSteps)
	}
	plan.Reasoning = fmt.Sprintf("revised after score %d: %s", fb.Score, firstNonEmpty(fb.Issues, "general improvement pass"))
	return plan
}

// normalize enforces the structural invariants every plan must satisfy
// before critique or execution: known tools only, non-empty inputs, no
// consecutive duplicates, and the synthesis tool exactly once, last.
func (p *Planner) normalize(plan *Plan) {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	kept := plan.Steps[:0]
	for _, s := range plan.Steps {
		if !p.reg.Has(s.Tool) {
			p.logger.Printf("dropping unknown tool %q from plan", s.Tool)
			continue
		}
		if s.Input == "" {
			s.Input = plan.Query
		}
		if n := len(kept); n > 0 && kept[n-1].Tool == s.Tool && kept[n-1].Input == s.Input {
			continue
		}
		kept = append(kept, s)
	}
	plan.Steps = kept

	// Synthesis goes last and only last.
	var synth *Step
	filtered := plan.Steps[:0]
	for _, s := range plan.Steps {
		if s.Tool == registry.SynthesisTool {
			if synth == nil {
				cp := s
				synth = &cp
			}
			continue
		}
		filtered = append(filtered, s)
	}
	plan.Steps = filtered
	if synth == nil {
		synth = &Step{Tool: registry.SynthesisTool, Purpose: "synthesize the final answer", Input: plan.Query}
	}
	if max := p.maxSteps - 1; max > 0 && len(plan.Steps) > max {
		plan.Steps = plan.Steps[:max]
	}
	plan.Steps = append(plan.Steps, *synth)
}

// fromModel runs one completion and recovers a plan from whatever comes back.
func (p *Planner) fromModel(ctx context.Context, prompt string) (*Plan, error) {
	raw, err := p.provider.Complete(ctx, llm.Request{
		System: "You design tool pipelines. Respond with a single JSON object and nothing else.",
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}
	obj, ok := recovery.Recover(raw, recovery.PlanShape)
	if !ok {
		return nil, fmt.Errorf("planner: unrecoverable model output")
	}
	plan := &Plan{
		Reasoning:   obj["reasoning"].(string),
		FinalOutput: obj["final_output"].(string),
	}
	for _, item := range obj["pipeline"].([]any) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		plan.Steps = append(plan.Steps, Step{
			Tool:    str(m["tool"]),
			Purpose: str(m["purpose"]),
			Input:   str(m["input"]),
		})
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("planner: model produced empty pipeline")
	}
	return plan, nil
}

func proposePrompt(query string, hints []Hint, tools []registry.Descriptor) string {
	var b strings.Builder
	b.WriteString("Design a tool pipeline to answer the user query.\n\nAvailable tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Purpose)
	}
	fmt.Fprintf(&b, "\nRules:\n- End with exactly one %q step.\n- Use only the tools listed.\n- Keep the pipeline short.\n", registry.SynthesisTool)
	for _, h := range hints {
		pipeline, _ := json.Marshal(h.Steps)
		fmt.Fprintf(&b, "\nA similar query (%q, similarity %.2f) previously succeeded with: %s\n", h.Query, h.Similarity, pipeline)
	}
	fmt.Fprintf(&b, "\nQuery: %s\n\nRespond with JSON: {\"query\": ..., \"reasoning\": ..., \"pipeline\": [{\"tool\": ..., \"purpose\": ..., \"input\": ...}], \"final_output\": ...}", query)
	return b.String()
}

func revisePrompt(query string, prior *Plan, fb Feedback, tools []registry.Descriptor) string {
	var b strings.Builder
	priorJSON, _ := json.Marshal(prior.Steps)
	fmt.Fprintf(&b, "A reviewer scored this pipeline %d/100 for the query %q.\n\nPipeline: %s\n", fb.Score, query, priorJSON)
	if len(fb.Issues) > 0 {
		fmt.Fprintf(&b, "\nIssues:\n")
		for _, issue := range fb.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	if len(fb.Suggestions) > 0 {
		fmt.Fprintf(&b, "\nSuggestions:\n")
		for _, s := range fb.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	b.WriteString("\nAvailable tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Purpose)
	}
	fmt.Fprintf(&b, "\nProduce an improved pipeline ending with %q. Respond with JSON: {\"query\": ..., \"reasoning\": ..., \"pipeline\": [...], \"final_output\": ...}", registry.SynthesisTool)
	return b.String()
}

func dedupeSteps(steps []Step) []Step {
	seen := make(map[string]bool, len(steps))
	out := steps[:0]
	for _, s := range steps {
		key := s.Tool + "\x1f" + s.Input
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func hasTool(steps []Step, tool string) bool {
	for _, s := range steps {
		if s.Tool == tool {
			return true
		}
	}
	return false
}

// trimToBudget keeps the first budget-1 non-synthesis steps; normalize
// re-appends synthesis afterwards.
func trimToBudget(steps []Step, budget int) []Step {
	if budget <= 0 || len(steps) <= budget {
		return steps
	}
	out := make([]Step, 0, budget)
	for _, s := range steps {
		if s.Tool == registry.SynthesisTool {
			continue
		}
		out = append(out, s)
		if len(out) == budget-1 {
			break
		}
	}
	return out
}

func rebindSteps(steps []Step, query string) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.Input = query
		out[i] = s
	}
	return out
}

func firstNonEmpty(items []string, fallback string) string {
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
