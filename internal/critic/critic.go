// Package critic scores candidate plans before anything executes. A model
// review is preferred; when no model is reachable a deterministic rule
// battery produces the verdict instead, so critique never blocks a query.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/dualmind/internal/llm"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/recovery"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
)

// Result is a critique verdict. Method records which path produced it.
type Result struct {
	Approved     bool      `json:"approved"`
	Score        int       `json:"score"`
	Issues       []string  `json:"issues"`
	Suggestions  []string  `json:"suggestions"`
	Improvements []string  `json:"improvements"`
	Reasoning    string    `json:"reasoning"`
	Method       string    `json:"method"` // "llm" or "rules"
	VerifiedAt   time.Time `json:"verified_at"`
}

// Critic reviews plans against a query.
type Critic struct {
	provider          llm.Provider
	reg               *registry.Registry
	approvalThreshold int
	maxSteps          int
	logger            *log.Logger
}

// New creates a critic. provider may be nil.
func New(provider llm.Provider, reg *registry.Registry, approvalThreshold, maxSteps int) *Critic {
	if approvalThreshold <= 0 {
		approvalThreshold = 70
	}
	if maxSteps <= 0 {
		maxSteps = 5
	}
	return &Critic{
		provider:          provider,
		reg:               reg,
		approvalThreshold: approvalThreshold,
		maxSteps:          maxSteps,
		logger:            log.New(log.Writer(), "[CRITIC] ", log.LstdFlags),
	}
}

// Review scores plan. It never fails; a dead model means rule review.
// Approval and score are reconciled both ways: a score at or above the
// threshold is an approval regardless of the model's flag, and an
// explicit model approval lifts a lower score to the threshold.
func (c *Critic) Review(ctx context.Context, query string, plan *planner.Plan) Result {
	res, err := c.fromModel(ctx, query, plan)
	if err != nil {
		if c.provider != nil {
			c.logger.Printf("model review failed (%v), using rules", err)
		}
		res = c.fromRules(query, plan)
	}
	if res.Score >= c.approvalThreshold {
		res.Approved = true
	} else if res.Approved {
		res.Score = c.approvalThreshold
	}
	res.VerifiedAt = time.Now()
	c.logger.Printf("plan revision %d scored %d (approved=%v, method=%s)", plan.Revision, res.Score, res.Approved, res.Method)
	return res
}

func (c *Critic) fromModel(ctx context.Context, query string, plan *planner.Plan) (Result, error) {
	if c.provider == nil {
		return Result{}, llm.ErrUnavailable
	}
	pipeline, _ := json.Marshal(plan.Steps)
	prompt := fmt.Sprintf(`Review this tool pipeline for the query %q.

Pipeline: %s
Reasoning: %s

Judge relevance, completeness, redundancy, efficiency and feasibility.
Respond with JSON: {"overall_approval": bool, "score": 0-100, "issues": [...], "suggestions": [...], "improvements": [...], "reasoning": ...}`,
		query, pipeline, plan.Reasoning)

	raw, err := c.provider.Complete(ctx, llm.Request{
		System: "You are a strict plan reviewer. Respond with a single JSON object and nothing else.",
		Prompt: prompt,
	})
	if err != nil {
		return Result{}, err
	}
	obj, ok := recovery.Recover(raw, recovery.CritiqueShape)
	if !ok {
		return Result{}, fmt.Errorf("critic: unrecoverable model output")
	}
	return Result{
		Approved:     obj["overall_approval"].(bool),
		Score:        clampScore(int(obj["score"].(float64))),
		Issues:       recovery.Strings(obj["issues"]),
		Suggestions:  recovery.Strings(obj["suggestions"]),
		Improvements: recovery.Strings(obj["improvements"]),
		Reasoning:    obj["reasoning"].(string),
		Method:       "llm",
	}, nil
}

// intentTools maps query intent keywords to the tools a relevant plan
// should reach for.
var intentTools = map[string][]string{
	"news":    {"news_fetcher", "web_search"},
	"recent":  {"news_fetcher", "web_search"},
	"today":   {"news_fetcher", "web_search"},
	"latest":  {"news_fetcher", "web_search"},
	"paper":   {"arxiv_summarizer"},
	"papers":  {"arxiv_summarizer"},
	"study":   {"arxiv_summarizer"},
	"report":  {"document_writer"},
	"pdf":     {"document_writer"},
	"explain": {"wikipedia_search", "web_search"},
	"what is": {"wikipedia_search", "web_search"},
}

// fromRules runs the deterministic check battery. Each failed check
// deducts from a perfect score and contributes an issue plus a
// suggestion the reviser knows how to act on.
func (c *Critic) fromRules(query string, plan *planner.Plan) Result {
	res := Result{Score: 100, Method: "rules"}
	q := strings.ToLower(query)
	tools := plan.Tools()
	toolSet := make(map[string]bool, len(tools))
	for _, t := range tools {
		toolSet[t] = true
	}

	// Feasibility: structural requirements for execution.
	if len(plan.Steps) == 0 {
		return Result{Score: 0, Method: "rules", Issues: []string{"plan has no steps"}, Reasoning: "empty pipeline"}
	}
	if tools[len(tools)-1] != registry.SynthesisTool {
		res.deduct(30, "pipeline does not end with the synthesis step", "move "+registry.SynthesisTool+" to the final position")
	}
	for _, t := range tools {
		if !c.reg.Has(t) {
			res.deduct(30, fmt.Sprintf("tool %q is not available", t), "use only registered tools")
		}
	}

	// Redundancy: repeated tool+input pairs add cost without information.
	seen := make(map[string]bool, len(plan.Steps))
	for _, s := range plan.Steps {
		key := s.Tool + "\x1f" + s.Input
		if seen[key] {
			res.deduct(15, "redundant step: "+s.Tool+" repeats the same input", "remove duplicate steps")
			break
		}
		seen[key] = true
	}

	// Relevance: the query's intent keywords imply tools the plan
	// should include.
	for keyword, wanted := range intentTools {
		if !strings.Contains(q, keyword) {
			continue
		}
		if !anyIn(toolSet, wanted) {
			res.deduct(15,
				fmt.Sprintf("query mentions %q but plan uses none of %s", keyword, strings.Join(wanted, ", ")),
				"add a step relevant to the query intent")
			break
		}
	}

	// Completeness: a lone synthesis step has nothing to synthesize.
	if len(plan.Steps) < 2 {
		res.deduct(10, "plan gathers no information before synthesis", "make the coverage more comprehensive")
	}

	// Efficiency: bounded length, information before processing.
	if len(plan.Steps) > c.maxSteps {
		res.deduct(10, fmt.Sprintf("plan has %d steps, too many", len(plan.Steps)), "trim the pipeline for efficiency")
	}
	if idx := firstProcessingBeforeInfo(tools); idx >= 0 {
		res.deduct(10, fmt.Sprintf("processing step %q runs before any information step", tools[idx]), "gather information before processing it")
	}

	res.Reasoning = fmt.Sprintf("rule review: %d issue(s) found", len(res.Issues))
	return res
}

func (r *Result) deduct(points int, issue, suggestion string) {
	r.Score -= points
	if r.Score < 0 {
		r.Score = 0
	}
	r.Issues = append(r.Issues, issue)
	r.Suggestions = append(r.Suggestions, suggestion)
}

var infoTools = map[string]bool{
	"wikipedia_search": true,
	"web_search":       true,
	"news_fetcher":     true,
	"arxiv_summarizer": true,
	"page_reader":      true,
}

// firstProcessingBeforeInfo returns the index of the first processing
// tool that runs before any information tool, or -1.
func firstProcessingBeforeInfo(tools []string) int {
	for i, t := range tools {
		if infoTools[t] {
			return -1
		}
		if t != registry.SynthesisTool {
			return i
		}
	}
	return -1
}

func anyIn(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
