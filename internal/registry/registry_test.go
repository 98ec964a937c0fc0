package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoTool() Tool {
	return Func(func(_ context.Context, input string) (string, error) {
		return "echo:" + input, nil
	})
}

func TestNewRequiresSynthesisTool(t *testing.T) {
	_, err := New(Entry{Descriptor: Descriptor{Name: "wikipedia_search"}, Impl: echoTool()})
	if err == nil || !strings.Contains(err.Error(), SynthesisTool) {
		t.Fatalf("expected missing synthesis error, got %v", err)
	}
}

func TestNewRejectsUnknownFallback(t *testing.T) {
	_, err := New(
		Entry{Descriptor: Descriptor{Name: SynthesisTool, Critical: true}, Impl: echoTool()},
		Entry{Descriptor: Descriptor{Name: "news_fetcher", Fallback: "missing_tool"}, Impl: echoTool()},
	)
	if err == nil {
		t.Fatal("expected unknown fallback error")
	}
}

func TestRegistryLookups(t *testing.T) {
	r, err := New(
		Entry{Descriptor: Descriptor{Name: SynthesisTool, Critical: true}, Impl: echoTool()},
		Entry{Descriptor: Descriptor{Name: "wikipedia_search", Critical: true}, Impl: echoTool()},
		Entry{Descriptor: Descriptor{Name: "news_fetcher", Fallback: "wikipedia_search"}, Impl: echoTool()},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Has("news_fetcher") || r.Has("nonexistent") {
		t.Error("Has gave wrong answers")
	}
	if got := r.Fallback("news_fetcher"); got != "wikipedia_search" {
		t.Errorf("Fallback = %q", got)
	}
	if r.Fallback("wikipedia_search") != "" {
		t.Error("wikipedia_search should have no fallback")
	}
	if !r.Critical(SynthesisTool) || r.Critical("news_fetcher") {
		t.Error("Critical gave wrong answers")
	}
	if r.Critical("nonexistent") {
		t.Error("unknown tool reported critical")
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "news_fetcher" {
		t.Errorf("Names = %v", names)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r, _ := New(Entry{Descriptor: Descriptor{Name: SynthesisTool}, Impl: echoTool()})
	if _, err := r.Invoke(context.Background(), "nope", "x"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	boom := Func(func(context.Context, string) (string, error) {
		panic("kaboom")
	})
	r, err := New(
		Entry{Descriptor: Descriptor{Name: SynthesisTool}, Impl: echoTool()},
		Entry{Descriptor: Descriptor{Name: "web_search"}, Impl: boom},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = r.Invoke(context.Background(), "web_search", "x")
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected panic error, got %v", err)
	}
}

func TestInvokePropagatesToolError(t *testing.T) {
	fail := Func(func(context.Context, string) (string, error) {
		return "", errors.New("upstream 503")
	})
	r, _ := New(
		Entry{Descriptor: Descriptor{Name: SynthesisTool}, Impl: echoTool()},
		Entry{Descriptor: Descriptor{Name: "news_fetcher"}, Impl: fail},
	)
	if _, err := r.Invoke(context.Background(), "news_fetcher", "x"); err == nil {
		t.Fatal("expected tool error to propagate")
	}
}
