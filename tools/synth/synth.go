// Package synth implements qa_engine, the mandatory terminal synthesis
// tool. It folds the run's accumulated context into a final answer,
// through a model when one is available and deterministically otherwise.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/dualmind/internal/engine"
	"github.com/mohammad-safakhou/dualmind/internal/llm"
)

// Tool produces the final answer of a run. The zero provider is valid.
type Tool struct {
	provider llm.Provider
}

// New creates the tool. provider may be nil.
func New(provider llm.Provider) *Tool {
	return &Tool{provider: provider}
}

// Run implements registry.Tool. Input arrives as question plus optional
// accumulated context from earlier pipeline steps.
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	question, runContext := engine.SplitContext(input)
	question = strings.TrimSpace(question)

	if t.provider != nil {
		answer, err := t.fromModel(ctx, question, runContext)
		if err == nil {
			return answer, nil
		}
		// fall through to the deterministic path
	}
	return stitch(question, runContext), nil
}

func (t *Tool) fromModel(ctx context.Context, question, runContext string) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Answer the question using the gathered material below. Be direct and cite which source section supports each claim.\n\nQuestion: %s\n", question)
	if runContext != "" {
		fmt.Fprintf(&prompt, "\nGathered material:\n%s\n", runContext)
	} else {
		prompt.WriteString("\nNo material was gathered; answer from general knowledge and say so.\n")
	}
	answer, err := t.provider.Complete(ctx, llm.Request{
		System: "You synthesize research findings into clear answers.",
		Prompt: prompt.String(),
	})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("synth: empty completion")
	}
	return answer, nil
}

// stitch builds an answer from raw context sections when no model can.
func stitch(question, runContext string) string {
	if runContext == "" {
		return fmt.Sprintf("No supporting material could be gathered for %q.", question)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Findings for %q:\n\n", question)
	for _, section := range strings.Split(runContext, "\n\n") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		fmt.Fprintf(&b, "%s\n\n", section)
	}
	return strings.TrimSpace(b.String())
}
