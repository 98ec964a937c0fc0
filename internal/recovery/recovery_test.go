package recovery

import (
	"reflect"
	"testing"
)

func TestRecoverCleanJSON(t *testing.T) {
	raw := `{"query":"q","reasoning":"r","pipeline":[{"tool":"wikipedia_search"}],"final_output":"f"}`
	obj, ok := Recover(raw, PlanShape)
	if !ok {
		t.Fatal("expected full recovery")
	}
	if obj["query"] != "q" || obj["reasoning"] != "r" {
		t.Errorf("unexpected object: %v", obj)
	}
	if len(obj["pipeline"].([]any)) != 1 {
		t.Errorf("pipeline lost: %v", obj["pipeline"])
	}
}

func TestRecoverCodeFence(t *testing.T) {
	raw := "Here is the plan you asked for:\n```json\n{\"query\": \"q\", \"pipeline\": []}\n```\nLet me know if you need changes."
	obj, ok := Recover(raw, PlanShape)
	if !ok {
		t.Fatal("expected recovery from fenced block")
	}
	if obj["query"] != "q" {
		t.Errorf("query = %v", obj["query"])
	}
}

func TestRecoverPreambleAndTrailingComma(t *testing.T) {
	raw := `Sure! {"score": 85, "overall_approval": true, "issues": [],}`
	obj, ok := Recover(raw, CritiqueShape)
	if !ok {
		t.Fatal("expected recovery after repair")
	}
	if obj["score"].(float64) != 85 {
		t.Errorf("score = %v", obj["score"])
	}
	if obj["overall_approval"] != true {
		t.Errorf("approval = %v", obj["overall_approval"])
	}
}

func TestRecoverPythonLiterals(t *testing.T) {
	raw := `{"overall_approval": True, "score": 60, "issues": None}`
	obj, ok := Recover(raw, CritiqueShape)
	if !ok {
		t.Fatal("expected recovery of python-style literals")
	}
	if obj["overall_approval"] != true {
		t.Errorf("approval = %v", obj["overall_approval"])
	}
	// None becomes null which is not a list, so issues defaults
	if got := obj["issues"].([]any); len(got) != 0 {
		t.Errorf("issues = %v", got)
	}
}

func TestRecoverSingleQuotes(t *testing.T) {
	raw := `{'query': 'tell me about ants', 'pipeline': []}`
	obj, ok := Recover(raw, PlanShape)
	if !ok {
		t.Fatal("expected recovery of single-quoted object")
	}
	if obj["query"] != "tell me about ants" {
		t.Errorf("query = %v", obj["query"])
	}
}

func TestRecoverUnquotedKeys(t *testing.T) {
	raw := `{score: 72, overall_approval: false, issues: ["too long"]}`
	obj, ok := Recover(raw, CritiqueShape)
	if !ok {
		t.Fatal("expected recovery of unquoted keys")
	}
	if obj["score"].(float64) != 72 {
		t.Errorf("score = %v", obj["score"])
	}
}

func TestRecoverEmbeddedBraces(t *testing.T) {
	raw := `analysis follows {"query": "what is {x}?", "reasoning": "braces in strings", "pipeline": [], "final_output": "ok"} trailing prose`
	obj, ok := Recover(raw, PlanShape)
	if !ok {
		t.Fatal("expected recovery of embedded object")
	}
	if obj["query"] != "what is {x}?" {
		t.Errorf("query = %v", obj["query"])
	}
}

func TestRecoverGarbageFallsBackToDefaults(t *testing.T) {
	for _, raw := range []string{"", "no json here at all", "{broken beyond ] repair", "[1,2,3]"} {
		obj, ok := Recover(raw, CritiqueShape)
		if ok {
			t.Errorf("Recover(%q) reported success", raw)
		}
		if obj["score"].(float64) != 50 {
			t.Errorf("default score = %v, want 50", obj["score"])
		}
		if obj["overall_approval"] != false {
			t.Errorf("default approval = %v, want false", obj["overall_approval"])
		}
		for _, key := range []string{"issues", "suggestions", "improvements"} {
			if _, isList := obj[key].([]any); !isList {
				t.Errorf("default %s is not a list: %v", key, obj[key])
			}
		}
	}
}

func TestRecoverMistypedKeysDefaultIndividually(t *testing.T) {
	raw := `{"query": 42, "reasoning": "good", "pipeline": "not a list", "final_output": "f"}`
	obj, ok := Recover(raw, PlanShape)
	if !ok {
		t.Fatal("object itself is parseable")
	}
	if obj["query"] != "" {
		t.Errorf("mistyped query should default, got %v", obj["query"])
	}
	if obj["reasoning"] != "good" {
		t.Errorf("valid key lost: %v", obj["reasoning"])
	}
	if !reflect.DeepEqual(obj["pipeline"], []any{}) {
		t.Errorf("mistyped pipeline should default, got %v", obj["pipeline"])
	}
}

func TestStrings(t *testing.T) {
	got := Strings([]any{"a", 1, "b", nil})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Strings = %v", got)
	}
	if Strings("nope") != nil {
		t.Error("non-list input should yield nil")
	}
}
