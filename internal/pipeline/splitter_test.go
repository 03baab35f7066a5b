package pipeline

import (
	"strings"
	"testing"

	"github.com/remilrls/knowhub/internal/document"
)

func TestSplitGenericDropsChunksBelowMinimum(t *testing.T) {
	sp := NewSplitter()
	sp.ChunkChars = 1024
	sp.MinChunkChars = 50

	doc := document.Document{PageContent: "too short"}
	out := sp.splitGeneric(doc)
	if len(out) != 0 {
		t.Fatalf("expected chunks under 50 chars to be dropped, got %d", len(out))
	}
}

func TestSplitGenericStampsMetadata(t *testing.T) {
	sp := NewSplitter()
	long := strings.Repeat("word ", 400) // well over chunk_chars
	doc := document.Document{PageContent: long}
	out := sp.splitGeneric(doc)

	if len(out) < 2 {
		t.Fatalf("expected multiple chunks for long input, got %d", len(out))
	}
	for i, c := range out {
		if c.Metadata.ChunkID == "" {
			t.Fatalf("chunk %d missing chunk_id", i)
		}
		if c.Metadata.ChunkIndex != i {
			t.Fatalf("chunk %d has chunk_index %d, want %d", i, c.Metadata.ChunkIndex, i)
		}
		if c.Metadata.SplitterVer != "char-v1" {
			t.Fatalf("chunk %d has splitter_version %q, want char-v1", i, c.Metadata.SplitterVer)
		}
	}
}

func TestSplitPPTXSingleChunk(t *testing.T) {
	sp := NewSplitter()
	doc := document.Document{PageContent: strings.Repeat("slide content ", 10), Metadata: document.Metadata{Ext: ".pptx"}}
	out := sp.Split([]document.Document{doc})
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 chunk for pptx, got %d", len(out))
	}
	if out[0].Metadata.SplitterVer != "pptx-v1" {
		t.Fatalf("expected pptx-v1 splitter version, got %q", out[0].Metadata.SplitterVer)
	}
}

func TestSplitMarkdownByHeaders(t *testing.T) {
	sp := NewSplitter()
	md := "# Title\n" + strings.Repeat("intro text ", 10) +
		"\n## Section Two\n" + strings.Repeat("section body ", 10)
	doc := document.Document{PageContent: md, Metadata: document.Metadata{Ext: ".md"}}

	out := sp.Split([]document.Document{doc})
	if len(out) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(out))
	}
	if out[0].Metadata.Title != "Title" || out[1].Metadata.Title != "Section Two" {
		t.Fatalf("unexpected section titles: %q, %q", out[0].Metadata.Title, out[1].Metadata.Title)
	}
}
