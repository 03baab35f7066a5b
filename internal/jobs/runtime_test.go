package jobs

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsRetriableFindsRetriableErrorAtTopLevel(t *testing.T) {
	err := Wrap("ingest: download failed: %w", errors.New("connection reset"))

	var target *RetriableError
	if !asRetriable(err, &target) {
		t.Fatalf("expected top-level RetriableError to be detected")
	}
	if target == nil {
		t.Fatalf("expected target to be populated")
	}
}

func TestAsRetriableWalksUnwrapChain(t *testing.T) {
	base := Wrap("embed batch failed: %w", errors.New("timeout"))
	wrapped := fmt.Errorf("ingest_document: %w", base)

	var target *RetriableError
	if !asRetriable(wrapped, &target) {
		t.Fatalf("expected RetriableError buried under fmt.Errorf wrapping to be detected")
	}
}

func TestAsRetriableRejectsTerminalErrors(t *testing.T) {
	err := fmt.Errorf("validation failed: %w", errors.New("bad extension"))

	var target *RetriableError
	if asRetriable(err, &target) {
		t.Fatalf("expected a plain wrapped error to not be treated as retriable")
	}
}

func TestWrapPreservesUnderlyingMessage(t *testing.T) {
	err := Wrap("ingest: %w", errors.New("disk full"))
	if err.Error() != "ingest: disk full" {
		t.Fatalf("unexpected error message: %q", err.Error())
	}

	var re *RetriableError
	if !errors.As(err, &re) {
		t.Fatalf("expected errors.As to find *RetriableError")
	}
	if re.Unwrap().Error() != "ingest: disk full" {
		t.Fatalf("unexpected unwrapped error: %v", re.Unwrap())
	}
}
