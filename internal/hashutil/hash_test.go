package hashutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestVerifySHA256MatchesComputed(t *testing.T) {
	path := writeTemp(t, "hello world")
	expected, err := ComputeSHA256(path)
	if err != nil {
		t.Fatalf("ComputeSHA256: %v", err)
	}
	ok, err := VerifySHA256(path, expected)
	if err != nil {
		t.Fatalf("VerifySHA256: %v", err)
	}
	if !ok {
		t.Fatalf("expected hash to verify")
	}
}

func TestVerifySHA256RejectsMismatch(t *testing.T) {
	path := writeTemp(t, "hello world")
	ok, err := VerifySHA256(path, "0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("VerifySHA256: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched hash to fail verification")
	}
}
