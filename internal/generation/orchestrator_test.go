package generation

import (
	"strconv"
	"strings"
	"testing"

	"github.com/remilrls/knowhub/internal/vectorstore"
)

func TestBuildContextBlockFormatsChunksAndJoinsWithSeparator(t *testing.T) {
	hits := []vectorstore.EmbeddingResult{
		{Source: "doc.pdf", Page: 3, Distance: 0.1205, Text: "first fact"},
		{Source: "notes.md", Page: 0, Distance: 0.4, Text: "second fact"},
	}

	block := buildContextBlock(hits)

	want := "[Chunk number 1 - doc.pdf (page 3) - distance: 0.120]\nfirst fact\n" +
		"\n---\n" +
		"[Chunk number 2 - notes.md (page 0) - distance: 0.400]\nsecond fact\n"
	if block != want {
		t.Fatalf("buildContextBlock mismatch:\ngot:  %q\nwant: %q", block, want)
	}
}

func TestBuildContextBlockEmptyHits(t *testing.T) {
	block := buildContextBlock(nil)
	if block != "" {
		t.Fatalf("expected empty block for no hits, got %q", block)
	}
}

func TestChunkMapGroupsRepeatedTextByIndex(t *testing.T) {
	hits := []vectorstore.EmbeddingResult{
		{Text: "alpha"},
		{Text: "beta"},
		{Text: "alpha"},
	}

	got := chunkMap(hits)
	if strings.Join(intsToStrings(got["alpha"]), ",") != "1,3" {
		t.Fatalf("expected alpha to map to [1 3], got %v", got["alpha"])
	}
	if strings.Join(intsToStrings(got["beta"]), ",") != "2" {
		t.Fatalf("expected beta to map to [2], got %v", got["beta"])
	}
}

func TestUniqueSourcesPreservesFirstSeenOrderAndDedups(t *testing.T) {
	hits := []vectorstore.EmbeddingResult{
		{Source: "a.pdf"},
		{Source: "b.pdf"},
		{Source: "a.pdf"},
		{Source: "c.pdf"},
		{Source: "b.pdf"},
	}

	got := uniqueSources(hits)
	want := []string{"a.pdf", "b.pdf", "c.pdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("uniqueSources = %v, want %v", got, want)
	}
}

func intsToStrings(in []int) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = strconv.Itoa(n)
	}
	return out
}
