package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func newAdapter(t *testing.T, keys ...string) *Adapter {
	t.Helper()
	a, err := New(keys, "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return a
}

func TestNewBuildsOneClientPerKey(t *testing.T) {
	a := newAdapter(t, " ", "k1", "", " k2 ")
	if len(a.clients) != 2 {
		t.Fatalf("clients = %d, want 2", len(a.clients))
	}
	if a.clients[0] == a.clients[1] {
		t.Fatal("keys share a client")
	}
	if a.model != DefaultModel {
		t.Fatalf("model = %q", a.model)
	}
}

func TestClientIsReused(t *testing.T) {
	a := newAdapter(t, "k1")
	c1, _ := a.client()
	c2, _ := a.client()
	if c1 != c2 {
		t.Fatal("client rebuilt between calls")
	}
}

func TestRotate(t *testing.T) {
	a := newAdapter(t, "a", "b", "c")
	first, _ := a.client()
	a.rotate(0)
	if _, idx := a.client(); idx != 1 {
		t.Fatalf("current = %d, want 1", idx)
	}
	a.rotate(0)
	if _, idx := a.client(); idx != 1 {
		t.Fatalf("stale rotate moved key to %d", idx)
	}
	a.rotate(1)
	a.rotate(2)
	if c, idx := a.client(); idx != 0 || c != first {
		t.Fatalf("expected wrap around, got index %d", idx)
	}
}

func TestNoKeys(t *testing.T) {
	if _, err := newAdapter(t).Score(context.Background(), "x", "", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := map[string]bool{
		"Error 429, Too Many Requests": true,
		"RESOURCE_EXHAUSTED":           true,
		"quota exceeded":               true,
		"permission denied":            false,
	}
	for msg, want := range tests {
		if got := isRateLimited(errors.New(msg)); got != want {
			t.Fatalf("isRateLimited(%q) = %v", msg, got)
		}
	}
}

func TestResponseText(t *testing.T) {
	r := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: `{"a":`}, {Text: `1}`}}},
	}}}
	if got := responseText(r); got != `{"a":1}` {
		t.Fatalf("responseText = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Fatalf("responseText(nil) = %q", got)
	}
}
