package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Step is one pipeline stage: a tool invocation with its stated purpose
// and input. Input defaults to the user query when a model leaves it blank.
type Step struct {
	Tool    string `json:"tool"`
	Purpose string `json:"purpose"`
	Input   string `json:"input"`
}

// Plan is a candidate execution pipeline for a query. Revision counts
// how many times the critic has sent it back; PriorScore carries the
// score that triggered the latest revision.
type Plan struct {
	Query        string    `json:"query"`
	Reasoning    string    `json:"reasoning"`
	Steps        []Step    `json:"pipeline"`
	FinalOutput  string    `json:"final_output"`
	Revision     int       `json:"revision"`
	PriorScore   *int      `json:"prior_score,omitempty"`
	LLMGenerated bool      `json:"llm_generated"`
	CreatedAt    time.Time `json:"created_at"`
}

// Tools returns the tool names in pipeline order.
func (p *Plan) Tools() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Tool
	}
	return out
}

// Fingerprint hashes the pipeline's tool/input sequence. Two plans with
// the same fingerprint are operationally identical, which is how the
// refinement loop detects a stalled reviser.
func (p *Plan) Fingerprint() string {
	var b strings.Builder
	for _, s := range p.Steps {
		b.WriteString(s.Tool)
		b.WriteByte('\x1f')
		b.WriteString(s.Input)
		b.WriteByte('\x1e')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Clone returns a deep copy safe for independent mutation.
func (p *Plan) Clone() *Plan {
	cp := *p
	cp.Steps = make([]Step, len(p.Steps))
	copy(cp.Steps, p.Steps)
	if p.PriorScore != nil {
		score := *p.PriorScore
		cp.PriorScore = &score
	}
	return &cp
}

// Hint is a previously successful pipeline offered to the planner as a
// starting point for a similar query.
type Hint struct {
	Query      string
	Steps      []Step
	Reasoning  string
	Score      int
	Similarity float64
}

// Feedback is the critic's verdict distilled to what a reviser needs.
type Feedback struct {
	Score       int
	Issues      []string
	Suggestions []string
}
