package pattern

import (
	"sort"
	"strings"
)

// Features is the comparable signature of a query.
type Features struct {
	Type        string   `json:"type"`
	Keywords    []string `json:"keywords"`
	HasQuestion bool     `json:"has_question"`
	Length      int      `json:"length"` // word count
}

// queryTypes classifies a query by the first matching keyword group.
// Order matters: an "analyze how X works" query is analysis, not how-to.
var queryTypes = []struct {
	name     string
	triggers []string
}{
	{"analysis", []string{"analyze", "analysis", "sentiment", "trend", "compare"}},
	{"research", []string{"research", "find", "papers", "investigate", "explore"}},
	{"how-to", []string{"how", "implement", "create", "build", "make"}},
	{"explanation", []string{"what", "explain", "define", "describe", "why"}},
}

// domainKeywords are the signal words kept for Jaccard comparison.
// Everything else in a query is treated as noise.
var domainKeywords = map[string][]string{
	"ai":        {"ai", "artificial", "intelligence", "machine", "learning", "neural", "model", "llm"},
	"science":   {"science", "scientific", "physics", "biology", "chemistry", "research", "paper", "study"},
	"news":      {"news", "recent", "latest", "today", "current", "headline"},
	"analysis":  {"analyze", "analysis", "sentiment", "trend", "statistics", "data"},
	"technical": {"code", "software", "program", "algorithm", "system", "api", "database"},
}

// Extract computes the feature signature of query.
func Extract(query string) Features {
	q := strings.ToLower(query)
	words := strings.Fields(q)

	f := Features{
		Type:        "general",
		HasQuestion: strings.Contains(query, "?"),
		Length:      len(words),
	}

	for _, qt := range queryTypes {
		for _, trig := range qt.triggers {
			if strings.Contains(q, trig) {
				f.Type = qt.name
				break
			}
		}
		if f.Type != "general" {
			break
		}
	}

	seen := map[string]bool{}
	for domain, terms := range domainKeywords {
		for _, term := range terms {
			if strings.Contains(q, term) && !seen[domain] {
				seen[domain] = true
				f.Keywords = append(f.Keywords, domain)
			}
		}
	}
	sort.Strings(f.Keywords)
	return f
}

// Similarity scores two feature sets in [0,1]: 0.4 for matching type,
// 0.4 weighted by keyword Jaccard overlap, 0.2 for matching question-ness.
func Similarity(a, b Features) float64 {
	var score float64
	if a.Type == b.Type {
		score += 0.4
	}
	score += 0.4 * jaccard(a.Keywords, b.Keywords)
	if a.HasQuestion == b.HasQuestion {
		score += 0.2
	}
	return score
}

// jaccard treats an empty set as zero overlap: two keyword-less queries
// share nothing, they are not interchangeable.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	inter := 0
	union := len(a)
	for _, s := range b {
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
