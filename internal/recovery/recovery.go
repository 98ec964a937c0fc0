// Package recovery turns unreliable model output into usable JSON objects.
// Model responses arrive wrapped in prose, code fences, or subtly broken
// syntax; rather than retrying the model, the cascade here repairs what it
// can and backfills the rest with shape defaults. Recover never fails.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind describes the expected type of a top-level key.
type Kind int

const (
	String Kind = iota
	List
	Bool
	Number
)

// Shape maps the top-level keys an object must carry to their kinds.
// Missing or wrong-typed keys are replaced with the kind's zero default.
type Shape map[string]Kind

// PlanShape is the object layout the planner expects back from a model.
var PlanShape = Shape{
	"query":        String,
	"reasoning":    String,
	"pipeline":     List,
	"final_output": String,
}

// CritiqueShape is the object layout the critic expects back from a model.
var CritiqueShape = Shape{
	"overall_approval": Bool,
	"score":            Number,
	"issues":           List,
	"suggestions":      List,
	"improvements":     List,
	"reasoning":        String,
}

var (
	preambleRe     = regexp.MustCompile(`(?is)^\s*(here is|here's|sure[,!]?|certainly[,!]?|of course[,!]?)[^{\[]*`)
	fenceRe        = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	missingComma   = regexp.MustCompile(`([}\]"0-9el])\s*\n\s*"`)
	unquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	pyLiteralTrue  = regexp.MustCompile(`\bTrue\b`)
	pyLiteralFalse = regexp.MustCompile(`\bFalse\b`)
	pyLiteralNone  = regexp.MustCompile(`\bNone\b`)
)

// Recover extracts a JSON object matching shape from raw model output.
// The second return is true when the object was parsed from the input
// without resorting to shape defaults for the whole document; it is false
// when nothing parseable survived and the result is entirely defaults.
// Individual keys may still be defaulted on a true return.
func Recover(raw string, shape Shape) (map[string]any, bool) {
	for _, candidate := range candidates(raw) {
		if obj := tryParse(candidate); obj != nil {
			return conform(obj, shape), true
		}
		if obj := tryParse(repair(candidate)); obj != nil {
			return conform(obj, shape), true
		}
	}
	return conform(map[string]any{}, shape), false
}

// candidates yields progressively more aggressive slices of raw that
// might contain the object: the input as-is, fenced blocks, the span
// between the first '{' and last '}', then every balanced-brace region.
func candidates(raw string) []string {
	var out []string
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return out
	}
	out = append(out, trimmed)

	stripped := preambleRe.ReplaceAllString(trimmed, "")
	if stripped != trimmed {
		out = append(out, stripped)
	}

	for _, m := range fenceRe.FindAllStringSubmatch(trimmed, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}

	if first, last := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); first >= 0 && last > first {
		out = append(out, trimmed[first:last+1])
	}

	out = append(out, balancedRegions(trimmed)...)
	return out
}

// balancedRegions scans for substrings with matched braces starting at
// each '{'. Strings and escapes are honored so braces inside quoted
// values do not terminate a region early.
func balancedRegions(s string) []string {
	var regions []string
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				if inString {
					escaped = true
				}
			case '"':
				inString = !inString
			case '{':
				if !inString {
					depth++
				}
			case '}':
				if !inString {
					depth--
					if depth == 0 {
						regions = append(regions, s[start:i+1])
						start = i
						i = len(s)
					}
				}
			}
		}
	}
	return regions
}

// repair applies syntax fixes common in model output: trailing commas,
// missing commas between lines, Python literals, single-quoted strings,
// and unquoted object keys.
func repair(s string) string {
	s = pyLiteralTrue.ReplaceAllString(s, "true")
	s = pyLiteralFalse.ReplaceAllString(s, "false")
	s = pyLiteralNone.ReplaceAllString(s, "null")
	s = trailingComma.ReplaceAllString(s, "$1")
	s = missingComma.ReplaceAllString(s, "$1,\n\"")
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	if !strings.Contains(s, `"`) && strings.Contains(s, `'`) {
		s = strings.ReplaceAll(s, `'`, `"`)
	}
	return s
}

func tryParse(s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// conform forces obj into shape: every declared key is present with the
// declared kind, defaulting where the parsed value is absent or mistyped.
func conform(obj map[string]any, shape Shape) map[string]any {
	out := make(map[string]any, len(shape))
	for key, kind := range shape {
		val, ok := obj[key]
		switch kind {
		case String:
			if s, isStr := val.(string); ok && isStr {
				out[key] = s
			} else {
				out[key] = defaultString(key)
			}
		case List:
			if l, isList := val.([]any); ok && isList {
				out[key] = l
			} else {
				out[key] = []any{}
			}
		case Bool:
			if b, isBool := val.(bool); ok && isBool {
				out[key] = b
			} else {
				out[key] = false
			}
		case Number:
			if n, isNum := val.(float64); ok && isNum {
				out[key] = n
			} else {
				out[key] = float64(defaultNumber(key))
			}
		}
	}
	return out
}

func defaultString(key string) string {
	switch key {
	case "reasoning":
		return "recovered from malformed output"
	case "final_output":
		return "synthesized answer"
	default:
		return ""
	}
}

// Unknown scores default to the middle of the range rather than zero so
// a garbled critique neither approves nor hard-rejects a plan.
func defaultNumber(key string) int {
	if key == "score" {
		return 50
	}
	return 0
}

// Strings converts a recovered []any value to []string, skipping
// non-string elements.
func Strings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
