// Package orchestrator wires the full query path together: pattern
// lookup, adversarial plan refinement, gated execution, and pattern
// write-back. It owns the output record callers see.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/dualmind/internal/engine"
	"github.com/mohammad-safakhou/dualmind/internal/loop"
	"github.com/mohammad-safakhou/dualmind/internal/pattern"
	"github.com/mohammad-safakhou/dualmind/internal/planner"
	"github.com/mohammad-safakhou/dualmind/internal/registry"
	"github.com/mohammad-safakhou/dualmind/internal/store"
	"github.com/mohammad-safakhou/dualmind/internal/telemetry"
)

// Status values for a finished run.
const (
	StatusCompleted           = "completed"
	StatusCompletedWithIssues = "completed_with_issues"
	StatusRejected            = "rejected"
)

// Refiner runs the plan/critique cycle.
type Refiner interface {
	Refine(ctx context.Context, query string, hints []planner.Hint) loop.Outcome
}

// Executor runs an accepted plan.
type Executor interface {
	Execute(ctx context.Context, plan *planner.Plan) ([]engine.Record, bool)
}

// SessionSink persists finished runs. *store.Store satisfies it.
type SessionSink interface {
	SaveSession(ctx context.Context, sess store.Session) error
}

// Output is the complete record of one query run.
type Output struct {
	SessionID          string              `json:"session_id"`
	Query              string              `json:"query"`
	FinalAnswer        string              `json:"final_answer"`
	Status             string              `json:"status"`
	PlanHistory        []loop.HistoryEntry `json:"plan_history"`
	ExecutionRecords   []engine.Record     `json:"execution_records"`
	SelfCorrectionUsed bool                `json:"self_correction_used"`
	PatternMatched     bool                `json:"pattern_matched"`
	PatternMatch       *pattern.Match      `json:"pattern_match,omitempty"` // best hint, when one cleared the threshold
	Iterations         int                 `json:"iterations"`
	FinalScore         int                 `json:"final_score"`
	Approved           bool                `json:"approved"`
	Elapsed            time.Duration       `json:"elapsed"`
	Error              string              `json:"error,omitempty"`
}

// Options tunes pattern gating.
type Options struct {
	SimilarityThreshold float64 // minimum similarity for a hint
	SuccessRate         float64 // minimum step success rate to memoize
	MatchLimit          int
}

// Orchestrator coordinates one query at a time; instances are safe for
// concurrent use.
type Orchestrator struct {
	refiner  Refiner
	executor Executor
	patterns pattern.Store
	sessions SessionSink
	tel      *telemetry.Telemetry
	opts     Options
	logger   *log.Logger
}

// New creates an orchestrator. patterns, sessions and tel may each be
// nil; the corresponding behavior is skipped.
func New(refiner Refiner, executor Executor, patterns pattern.Store, sessions SessionSink, tel *telemetry.Telemetry, opts Options) *Orchestrator {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.7
	}
	if opts.SuccessRate <= 0 {
		opts.SuccessRate = 0.8
	}
	if opts.MatchLimit <= 0 {
		opts.MatchLimit = 5
	}
	return &Orchestrator{
		refiner:  refiner,
		executor: executor,
		patterns: patterns,
		sessions: sessions,
		tel:      tel,
		opts:     opts,
		logger:   log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags),
	}
}

// Process runs query end to end and returns its output record. The
// returned error is reserved for context cancellation; degraded runs
// come back as records with a non-completed status.
func (o *Orchestrator) Process(ctx context.Context, query string) (*Output, error) {
	start := time.Now()
	out := &Output{
		SessionID: uuid.NewString(),
		Query:     query,
	}

	ctx, span := o.span(ctx, "orchestrator.process")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", out.SessionID))

	matches := o.lookupMatches(ctx, query)
	hints := pattern.Hints(matches)
	out.PatternMatched = len(matches) > 0
	if out.PatternMatched {
		best := matches[0]
		out.PatternMatch = &best
		o.logger.Printf("found %d pattern hint(s) for session %s", len(matches), out.SessionID)
		if o.tel != nil {
			o.tel.PatternHits.Inc()
		}
	}

	outcome := o.refiner.Refine(ctx, query, hints)
	out.PlanHistory = outcome.History
	out.Iterations = outcome.Iterations
	out.FinalScore = outcome.Critique.Score
	out.Approved = outcome.Critique.Approved
	if o.tel != nil {
		o.tel.Iterations.Observe(float64(outcome.Iterations))
		o.tel.FinalScores.Observe(float64(outcome.Critique.Score))
	}
	span.AddEvent("refinement.complete")
	span.SetAttributes(
		attribute.Int("plan.iterations", outcome.Iterations),
		attribute.Int("plan.score", outcome.Critique.Score),
		attribute.Bool("plan.approved", outcome.Critique.Approved),
	)

	if outcome.RejectedForExecution {
		out.Status = StatusRejected
		out.Error = fmt.Sprintf("plan rejected: score %d after %d iteration(s)", outcome.Critique.Score, outcome.Iterations)
		out.FinalAnswer = rejectionAnswer(outcome)
		out.Elapsed = time.Since(start)
		span.SetStatus(codes.Error, "plan rejected")
		o.finish(ctx, out)
		return out, ctx.Err()
	}

	records, corrected := o.executor.Execute(ctx, outcome.Plan)
	out.ExecutionRecords = records
	out.SelfCorrectionUsed = corrected
	out.FinalAnswer = finalAnswer(records)

	failures := 0
	for _, r := range records {
		if o.tel != nil {
			o.tel.ToolInvocations.WithLabelValues(r.Tool, string(r.Status)).Inc()
		}
		if r.Status == engine.StatusFailed {
			failures++
		}
	}
	if corrected && o.tel != nil {
		o.tel.SelfCorrections.Inc()
	}
	if failures == 0 {
		out.Status = StatusCompleted
	} else {
		out.Status = StatusCompletedWithIssues
		out.Error = fmt.Sprintf("%d step(s) failed after self-correction", failures)
	}
	out.Elapsed = time.Since(start)

	o.memoize(ctx, outcome, records)
	span.SetAttributes(attribute.String("run.status", out.Status))
	span.SetStatus(codes.Ok, out.Status)
	o.finish(ctx, out)
	return out, ctx.Err()
}

func (o *Orchestrator) span(ctx context.Context, name string) (context.Context, trace.Span) {
	if o.tel != nil {
		return o.tel.Tracer().Start(ctx, name)
	}
	return otel.Tracer("dualmind").Start(ctx, name)
}

// lookupMatches probes the pattern store for memoized pipelines, best
// first.
func (o *Orchestrator) lookupMatches(ctx context.Context, query string) []pattern.Match {
	if o.patterns == nil {
		return nil
	}
	matches, err := o.patterns.FindSimilar(ctx, pattern.Extract(query), o.opts.SimilarityThreshold, o.opts.MatchLimit)
	if err != nil {
		o.logger.Printf("pattern lookup failed: %v", err)
		return nil
	}
	return matches
}

// memoize persists the run as a pattern when it earned it: the plan was
// approved and enough of its steps succeeded.
func (o *Orchestrator) memoize(ctx context.Context, outcome loop.Outcome, records []engine.Record) {
	if o.patterns == nil || outcome.State != loop.Approved || len(records) == 0 {
		return
	}
	succeeded := 0
	for _, r := range records {
		if r.Status == engine.StatusSuccess {
			succeeded++
		}
	}
	rate := float64(succeeded) / float64(len(records))
	if rate < o.opts.SuccessRate {
		o.logger.Printf("skipping memoization: success rate %.2f below %.2f", rate, o.opts.SuccessRate)
		return
	}
	plan := outcome.Plan
	p := pattern.Pattern{
		Timestamp: time.Now(),
		Query:     plan.Query,
		Features:  pattern.Extract(plan.Query),
		Steps:     plan.Steps,
		Reasoning: plan.Reasoning,
		ToolsUsed: plan.Tools(),
		Score:     outcome.Critique.Score,
	}
	if err := o.patterns.Save(ctx, p); err != nil {
		o.logger.Printf("pattern save failed: %v", err)
		return
	}
	o.logger.Printf("memoized pattern for %q (score %d)", truncate(plan.Query, 60), p.Score)
}

// finish records metrics and persists the session. Persistence is best
// effort; a dead store never fails the run.
func (o *Orchestrator) finish(ctx context.Context, out *Output) {
	if o.tel != nil {
		o.tel.Queries.WithLabelValues(out.Status).Inc()
		o.tel.QueryDuration.Observe(out.Elapsed.Seconds())
	}
	if o.sessions == nil {
		return
	}
	raw, err := json.Marshal(out)
	if err != nil {
		o.logger.Printf("marshal output: %v", err)
		raw = []byte(`{}`)
	}
	sess := store.Session{
		ID:                 out.SessionID,
		Query:              out.Query,
		Status:             out.Status,
		FinalAnswer:        out.FinalAnswer,
		Score:              out.FinalScore,
		Approved:           out.Approved,
		Iterations:         out.Iterations,
		SelfCorrectionUsed: out.SelfCorrectionUsed,
		PatternMatched:     out.PatternMatched,
		ElapsedMS:          out.Elapsed.Milliseconds(),
		Output:             raw,
	}
	if err := o.sessions.SaveSession(ctx, sess); err != nil {
		o.logger.Printf("session save failed: %v", err)
	}
}

// finalAnswer extracts the synthesis output from the run's records.
func finalAnswer(records []engine.Record) string {
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Tool == registry.SynthesisTool && r.Status == engine.StatusSuccess {
			return r.Output
		}
	}
	// no synthesis available, fall back to the last useful output
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Status == engine.StatusSuccess && records[i].Output != "" {
			return records[i].Output
		}
	}
	return "no answer could be produced"
}

func rejectionAnswer(outcome loop.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The plan for this query was rejected (score %d/100) and was not executed.", outcome.Critique.Score)
	if len(outcome.Critique.Issues) > 0 {
		b.WriteString(" Issues: ")
		b.WriteString(strings.Join(outcome.Critique.Issues, "; "))
	}
	return b.String()
}

// Summary renders a short human-readable account of the run.
func (out *Output) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", out.SessionID)
	fmt.Fprintf(&b, "Query:  %s\n", out.Query)
	fmt.Fprintf(&b, "Status: %s (score %d, approved=%v, iterations=%d)\n", out.Status, out.FinalScore, out.Approved, out.Iterations)
	if out.PatternMatch != nil {
		fmt.Fprintf(&b, "Planned from memoized pattern %q (similarity %.2f).\n", truncate(out.PatternMatch.Query, 60), out.PatternMatch.Similarity)
	}
	if out.SelfCorrectionUsed {
		b.WriteString("Self-correction was used during execution.\n")
	}
	for _, r := range out.ExecutionRecords {
		fmt.Fprintf(&b, "  step %d  %-18s %-8s %s\n", r.Step, r.Tool, r.Status, r.Elapsed.Round(time.Millisecond))
	}
	if out.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", out.Error)
	}
	fmt.Fprintf(&b, "\n%s\n", out.FinalAnswer)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
