package httpapi

import (
	"errors"
	"strings"
	"testing"
)

func TestNewStreamCorrelationIDIsUniqueAndPrefixed(t *testing.T) {
	a := newStreamCorrelationID()
	b := newStreamCorrelationID()

	if a == b {
		t.Fatalf("expected distinct correlation ids, got %q twice", a)
	}
	if !strings.HasPrefix(a, "stream-") || !strings.HasPrefix(b, "stream-") {
		t.Fatalf("expected stream- prefix, got %q and %q", a, b)
	}
}

func TestGenerateRequestWithDefaults(t *testing.T) {
	r := generateRequest{}.withDefaults()
	if r.K != 5 {
		t.Fatalf("K default = %d, want 5", r.K)
	}
	if r.Temperature != 0.2 {
		t.Fatalf("Temperature default = %v, want 0.2", r.Temperature)
	}
	if r.MaxTokens != 1024 {
		t.Fatalf("MaxTokens default = %d, want 1024", r.MaxTokens)
	}

	custom := generateRequest{K: 10, Temperature: 0.9, MaxTokens: 256}.withDefaults()
	if custom.K != 10 || custom.Temperature != 0.9 || custom.MaxTokens != 256 {
		t.Fatalf("withDefaults overwrote explicit values: %+v", custom)
	}
}

func TestErrJSONEncodesMessage(t *testing.T) {
	got := errJSON(errors.New("boom"))
	if !strings.Contains(got, `"message"`) || !strings.Contains(got, "boom") {
		t.Fatalf("errJSON = %q, expected it to embed the error message", got)
	}
}
