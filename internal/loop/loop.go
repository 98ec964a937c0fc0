// Package loop runs the plan/critique refinement cycle: propose a plan,
// review it, revise on rejection, and stop on approval, on an iteration
// budget, or when a revision changes nothing.
package loop

import (
	"context"
	"log"

	"github.com/mohammad-safakhou/dualmind/internal/critic"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
)

// State is the terminal condition of a refinement run.
type State string

const (
	// Approved means the critic accepted a plan version.
	Approved State = "approved"
	// Exhausted means the iteration budget ran out, or the reviser
	// stopped making changes, without approval.
	Exhausted State = "exhausted"
)

// Proposer produces and revises plans.
type Proposer interface {
	Propose(ctx context.Context, query string, hints []planner.Hint) *planner.Plan
	Revise(ctx context.Context, query string, prior *planner.Plan, fb planner.Feedback) *planner.Plan
}

// Reviewer scores plans.
type Reviewer interface {
	Review(ctx context.Context, query string, plan *planner.Plan) critic.Result
}

// HistoryEntry records one critiqued plan version.
type HistoryEntry struct {
	Iteration int            `json:"iteration"`
	Plan      *planner.Plan  `json:"plan"`
	Critique  critic.Result  `json:"critique"`
	Score     int            `json:"score"`
	Approved  bool           `json:"approved"`
}

// Outcome is the result of a refinement run. Plan and Critique refer to
// the final version; History holds every critiqued version in order.
type Outcome struct {
	Plan       *planner.Plan  `json:"plan"`
	Critique   critic.Result  `json:"critique"`
	History    []HistoryEntry `json:"history"`
	Iterations int            `json:"iterations"`
	State      State          `json:"state"`
	Stalled    bool           `json:"stalled"`

	// RejectedForExecution is set when the final plan is both
	// unapproved and scored below the rejection threshold. Such plans
	// must not reach the engine.
	RejectedForExecution bool `json:"rejected_for_execution"`
}

// Loop drives refinement for one query at a time. It is stateless
// between calls and safe for concurrent use.
type Loop struct {
	proposer           Proposer
	reviewer           Reviewer
	maxIterations      int
	rejectionThreshold int
	logger             *log.Logger
}

// New creates a refinement loop. maxIterations bounds the number of
// revisions, so up to maxIterations+1 plan versions get critiqued.
func New(proposer Proposer, reviewer Reviewer, maxIterations, rejectionThreshold int) *Loop {
	if maxIterations < 0 {
		maxIterations = 0
	}
	return &Loop{
		proposer:           proposer,
		reviewer:           reviewer,
		maxIterations:      maxIterations,
		rejectionThreshold: rejectionThreshold,
		logger:             log.New(log.Writer(), "[LOOP] ", log.LstdFlags),
	}
}

// Refine runs propose/critique/revise to a terminal state. It never
// returns an error; the worst case is an Exhausted outcome carrying the
// best the planner could do.
func (l *Loop) Refine(ctx context.Context, query string, hints []planner.Hint) Outcome {
	plan := l.proposer.Propose(ctx, query, hints)
	out := Outcome{}

	for iter := 1; ; iter++ {
		crit := l.reviewer.Review(ctx, query, plan)
		out.History = append(out.History, HistoryEntry{
			Iteration: iter,
			Plan:      plan,
			Critique:  crit,
			Score:     crit.Score,
			Approved:  crit.Approved,
		})
		out.Plan = plan
		out.Critique = crit
		out.Iterations = iter

		if crit.Approved {
			out.State = Approved
			l.logger.Printf("approved at iteration %d with score %d", iter, crit.Score)
			return out
		}
		if iter > l.maxIterations {
			l.finishExhausted(&out, crit, "iteration budget spent")
			return out
		}

		revised := l.proposer.Revise(ctx, query, plan, planner.Feedback{
			Score:       crit.Score,
			Issues:      crit.Issues,
			Suggestions: crit.Suggestions,
		})
		if revised.Fingerprint() == plan.Fingerprint() {
			out.Stalled = true
			l.finishExhausted(&out, crit, "revision changed nothing")
			return out
		}
		plan = revised
	}
}

func (l *Loop) finishExhausted(out *Outcome, crit critic.Result, why string) {
	out.State = Exhausted
	out.RejectedForExecution = !crit.Approved && crit.Score < l.rejectionThreshold
	l.logger.Printf("exhausted after %d iteration(s) (%s): score %d, rejected=%v",
		out.Iterations, why, crit.Score, out.RejectedForExecution)
}
