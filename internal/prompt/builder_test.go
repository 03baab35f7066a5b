package prompt

import (
	"strings"
	"testing"
)

func TestBuildRAGGenerationIncludesContextAndQuestion(t *testing.T) {
	b := New()
	msgs := b.BuildRAGGeneration("[Chunk number 1 - doc.pdf (page 1) - distance: 0.120]\nsome fact\n", "What is the fact?")

	if msgs.System == "" {
		t.Fatalf("expected a non-empty system prompt")
	}
	if !strings.Contains(msgs.User, "some fact") {
		t.Fatalf("expected user message to embed the context block, got %q", msgs.User)
	}
	if !strings.Contains(msgs.User, "What is the fact?") {
		t.Fatalf("expected user message to embed the question, got %q", msgs.User)
	}
}
