package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGenerateChatParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong Authorization header: %q", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello there"}}]}`)
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL})
	got, err := p.GenerateChat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("GenerateChat: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("GenerateChat = %q, want %q", got, "hello there")
	}
}

func TestOpenAIStreamChatEmitsTokensAndDoneOnSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"foo\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"bar\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	p := newOpenAI(Config{APIKey: "k", BaseURL: srv.URL})
	out := make(chan StreamToken, 8)
	if err := p.StreamChat(context.Background(), ChatRequest{}, out); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	close(out)

	var got []StreamToken
	for tok := range out {
		got = append(got, tok)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 tokens (2 content + done), got %d: %+v", len(got), got)
	}
	if got[0].Content != "foo" || got[1].Content != "bar" {
		t.Fatalf("unexpected content tokens: %+v", got)
	}
	if !got[2].Done {
		t.Fatalf("expected final token to be the done sentinel, got %+v", got[2])
	}
}

func TestNewUnknownProviderKind(t *testing.T) {
	_, err := New(ProviderKind("made-up"), Config{})
	if err == nil {
		t.Fatalf("expected an error for an unknown provider kind")
	}
	var upe *UnknownProviderError
	if ok := asUnknownProviderError(err, &upe); !ok {
		t.Fatalf("expected *UnknownProviderError, got %T: %v", err, err)
	}
	if upe.Kind != "made-up" {
		t.Fatalf("unexpected kind on error: %q", upe.Kind)
	}
}

func asUnknownProviderError(err error, target **UnknownProviderError) bool {
	if e, ok := err.(*UnknownProviderError); ok {
		*target = e
		return true
	}
	return false
}
