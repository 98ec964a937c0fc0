package critic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/dualmind/internal/llm"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Complete(context.Context, llm.Request) (string, error) {
	return s.reply, s.err
}

func noop() registry.Tool {
	return registry.Func(func(context.Context, string) (string, error) { return "ok", nil })
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(
		registry.Entry{Descriptor: registry.Descriptor{Name: "qa_engine", Critical: true}, Impl: noop()},
		registry.Entry{Descriptor: registry.Descriptor{Name: "wikipedia_search", Critical: true}, Impl: noop()},
		registry.Entry{Descriptor: registry.Descriptor{Name: "news_fetcher", Fallback: "wikipedia_search"}, Impl: noop()},
		registry.Entry{Descriptor: registry.Descriptor{Name: "document_writer"}, Impl: noop()},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func goodPlan(query string) *planner.Plan {
	return &planner.Plan{
		Query: query,
		Steps: []planner.Step{
			{Tool: "wikipedia_search", Purpose: "background", Input: query},
			{Tool: "qa_engine", Purpose: "answer", Input: query},
		},
	}
}

func TestReviewModelApproval(t *testing.T) {
	provider := &stubProvider{reply: `{"overall_approval": true, "score": 85, "issues": [], "suggestions": [], "improvements": [], "reasoning": "solid"}`}
	c := New(provider, testRegistry(t), 70, 5)
	res := c.Review(context.Background(), "what are ants?", goodPlan("what are ants?"))
	if !res.Approved || res.Score != 85 {
		t.Errorf("got approved=%v score=%d", res.Approved, res.Score)
	}
	if res.Method != "llm" {
		t.Errorf("method = %q", res.Method)
	}
}

func TestReviewScoreAboveThresholdImpliesApproval(t *testing.T) {
	provider := &stubProvider{reply: `{"overall_approval": false, "score": 75, "issues": [], "suggestions": [], "improvements": [], "reasoning": ""}`}
	c := New(provider, testRegistry(t), 70, 5)
	res := c.Review(context.Background(), "q", goodPlan("q"))
	if !res.Approved {
		t.Error("score 75 with threshold 70 must approve")
	}
}

func TestReviewExplicitApprovalLiftsScore(t *testing.T) {
	provider := &stubProvider{reply: `{"overall_approval": true, "score": 60, "issues": [], "suggestions": [], "improvements": [], "reasoning": ""}`}
	c := New(provider, testRegistry(t), 70, 5)
	res := c.Review(context.Background(), "q", goodPlan("q"))
	if !res.Approved || res.Score != 70 {
		t.Errorf("got approved=%v score=%d, want approved with score lifted to 70", res.Approved, res.Score)
	}
}

func TestReviewFallsBackToRules(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	c := New(provider, testRegistry(t), 70, 5)
	res := c.Review(context.Background(), "what is photosynthesis?", goodPlan("what is photosynthesis?"))
	if res.Method != "rules" {
		t.Fatalf("method = %q, want rules", res.Method)
	}
	if !res.Approved {
		t.Errorf("clean plan should pass rule review, got score %d issues %v", res.Score, res.Issues)
	}
}

func TestRuleReviewFlagsMissingSynthesis(t *testing.T) {
	c := New(nil, testRegistry(t), 70, 5)
	plan := &planner.Plan{
		Query: "q",
		Steps: []planner.Step{{Tool: "wikipedia_search", Input: "q"}},
	}
	res := c.Review(context.Background(), "q", plan)
	if res.Approved {
		t.Error("plan without terminal synthesis should not approve")
	}
	if len(res.Issues) == 0 {
		t.Error("expected issues")
	}
}

func TestRuleReviewFlagsRedundancy(t *testing.T) {
	c := New(nil, testRegistry(t), 70, 5)
	plan := &planner.Plan{
		Query: "q",
		Steps: []planner.Step{
			{Tool: "news_fetcher", Input: "q"},
			{Tool: "news_fetcher", Input: "q"},
			{Tool: "qa_engine", Input: "q"},
		},
	}
	res := c.Review(context.Background(), "q", plan)
	found := false
	for _, issue := range res.Issues {
		if contains(issue, "redundant") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected redundancy issue, got %v", res.Issues)
	}
}

func TestRuleReviewFlagsIrrelevance(t *testing.T) {
	c := New(nil, testRegistry(t), 70, 5)
	plan := goodPlan("what are the latest developments in fusion?")
	res := c.Review(context.Background(), plan.Query, plan)
	found := false
	for _, issue := range res.Issues {
		if contains(issue, "latest") {
			found = true
		}
	}
	if !found {
		t.Errorf("query about latest news without news tools should be flagged, got %v", res.Issues)
	}
}

func TestRuleReviewFlagsOversizedPlan(t *testing.T) {
	c := New(nil, testRegistry(t), 70, 3)
	plan := &planner.Plan{
		Query: "q",
		Steps: []planner.Step{
			{Tool: "wikipedia_search", Input: "a"},
			{Tool: "news_fetcher", Input: "b"},
			{Tool: "wikipedia_search", Input: "c"},
			{Tool: "qa_engine", Input: "q"},
		},
	}
	res := c.Review(context.Background(), "q", plan)
	found := false
	for _, issue := range res.Issues {
		if contains(issue, "too many") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected oversize issue, got %v", res.Issues)
	}
}

func TestReviewGarbledModelOutputDefaults(t *testing.T) {
	provider := &stubProvider{reply: "I think this plan is pretty good overall!"}
	c := New(provider, testRegistry(t), 70, 5)
	res := c.Review(context.Background(), "q", goodPlan("q"))
	// unrecoverable output falls through to rules, never errors
	if res.Method != "rules" {
		t.Errorf("method = %q, want rules", res.Method)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
