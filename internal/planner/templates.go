package planner

import "strings"

// templateFor builds a deterministic plan from hand-tuned pipelines keyed
// on query intent. This is the path taken whenever the model is down or
// returns nothing usable, so every template must be executable as-is.
func templateFor(query string) *Plan {
	q := strings.ToLower(query)

	switch {
	case containsAny(q, "summarize", "summary", "overview", "brief"):
		return &Plan{
			Query:     query,
			Reasoning: "summary request: gather background, then condense",
			Steps: []Step{
				{Tool: "wikipedia_search", Purpose: "gather background", Input: query},
				{Tool: "qa_engine", Purpose: "condense into a summary", Input: query},
			},
			FinalOutput: "concise summary",
		}
	case containsAny(q, "analyze", "analysis", "sentiment", "trend", "compare"):
		return &Plan{
			Query:     query,
			Reasoning: "analysis request: collect current material, then analyze",
			Steps: []Step{
				{Tool: "news_fetcher", Purpose: "collect recent coverage", Input: query},
				{Tool: "web_search", Purpose: "collect supporting sources", Input: query},
				{Tool: "qa_engine", Purpose: "analyze gathered material", Input: query},
			},
			FinalOutput: "analysis with supporting evidence",
		}
	case containsAny(q, "report", "document", "pdf", "write up", "writeup"):
		return &Plan{
			Query:     query,
			Reasoning: "report request: research, draft document, answer",
			Steps: []Step{
				{Tool: "wikipedia_search", Purpose: "gather background", Input: query},
				{Tool: "web_search", Purpose: "gather current sources", Input: query},
				{Tool: "document_writer", Purpose: "draft the report", Input: query},
				{Tool: "qa_engine", Purpose: "produce the final answer", Input: query},
			},
			FinalOutput: "written report",
		}
	case containsAny(q, "research", "explore", "investigate", "paper", "study"):
		return &Plan{
			Query:     query,
			Reasoning: "research request: broad gathering across sources",
			Steps: []Step{
				{Tool: "wikipedia_search", Purpose: "gather background", Input: query},
				{Tool: "arxiv_summarizer", Purpose: "find relevant papers", Input: query},
				{Tool: "qa_engine", Purpose: "synthesize findings", Input: query},
			},
			FinalOutput: "research synthesis",
		}
	default:
		return &Plan{
			Query:     query,
			Reasoning: "general request: background lookup plus synthesis",
			Steps: []Step{
				{Tool: "wikipedia_search", Purpose: "gather background", Input: query},
				{Tool: "qa_engine", Purpose: "answer the question", Input: query},
			},
			FinalOutput: "direct answer",
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
